package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"tiktok-link/config"
	"tiktok-link/models"
)

const (
	usersCollection     = "users"
	platformsCollection = "SocialMediaPlatforms"
	accountsCollection  = "Accounts"
	videosCollection    = "Videos"
	metricsCollection   = "Metrics"
)

// FirestoreStore keeps documents in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore initializes the Firebase app and its Firestore client.
// Without a credentials path the default application credentials are used.
func NewFirestoreStore(ctx context.Context, cfg config.FirebaseConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// NewFirestoreStoreWithClient wraps an existing client.
func NewFirestoreStoreWithClient(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) platformRef(uid string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).
		Doc(uid).
		Collection(platformsCollection).
		Doc(models.PlatformTikTok)
}

func (s *FirestoreStore) accountRef(uid, username string) *firestore.DocumentRef {
	return s.platformRef(uid).Collection(accountsCollection).Doc(username)
}

func (s *FirestoreStore) UpsertAccount(ctx context.Context, uid string, account models.LinkedAccount) error {
	fields := account.Fields()
	fields["updatedAt"] = firestore.ServerTimestamp

	if _, err := s.accountRef(uid, account.Username).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("save account %s: %w", account.Username, err)
	}
	return nil
}

func (s *FirestoreStore) RefreshSummary(ctx context.Context, uid string) (int, error) {
	iter := s.platformRef(uid).Collection(accountsCollection).Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("count accounts: %w", err)
		}
		count++
	}

	_, err := s.platformRef(uid).Set(ctx, map[string]any{
		"account_count": count,
		"updated_at":    firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return 0, fmt.Errorf("save summary: %w", err)
	}
	return count, nil
}

func (s *FirestoreStore) SaveVideos(ctx context.Context, uid, username string, items []models.ContentItem) error {
	if len(items) == 0 {
		return nil
	}

	videos := s.accountRef(uid, username).Collection(videosCollection)
	refs := make([]*firestore.DocumentRef, len(items))
	for i, item := range items {
		refs[i] = videos.Doc(item.ID)
	}

	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return fmt.Errorf("load existing videos: %w", err)
	}

	batch := s.client.Batch()
	for i, item := range items {
		fields := item.Fields()
		if !snaps[i].Exists() {
			fields["is_tracked"] = false
		}
		batch.Set(refs[i], fields, firestore.MergeAll)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit video batch: %w", err)
	}
	return nil
}

func (s *FirestoreStore) SaveVideoMetrics(ctx context.Context, uid, username string, snapshots []models.MetricsSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	videos := s.accountRef(uid, username).Collection(videosCollection)
	batch := s.client.Batch()
	for _, snap := range snapshots {
		metrics := videos.Doc(snap.VideoID).Collection(metricsCollection)

		latest, err := metrics.Where("timestamp", "<", snap.Timestamp).
			OrderBy("timestamp", firestore.Desc).
			Limit(1).
			Documents(ctx).GetAll()
		if err != nil {
			return fmt.Errorf("load latest metrics for %s: %w", snap.VideoID, err)
		}
		if len(latest) > 0 {
			snap = snap.After(getInt64FromData(latest[0].Data(), "view_count"))
		}
		batch.Set(metrics.Doc(snap.ID()), snap.Fields())

		stale, err := metrics.Where("timestamp", "<", snap.Timestamp.Add(-MetricsRetention)).Documents(ctx).GetAll()
		if err != nil {
			return fmt.Errorf("load stale metrics for %s: %w", snap.VideoID, err)
		}
		for _, doc := range stale {
			batch.Delete(doc.Ref)
		}
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit metrics batch: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListAccounts(ctx context.Context) ([]models.AccountRef, error) {
	iter := s.client.CollectionGroup(accountsCollection).Documents(ctx)
	defer iter.Stop()

	var refs []models.AccountRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}

		uid, ok := accountOwner(doc.Ref)
		if !ok {
			continue
		}

		data := doc.Data()
		tokens, _ := data["tokens"].(map[string]interface{})
		refs = append(refs, models.AccountRef{
			UserID:      uid,
			Username:    doc.Ref.ID,
			OpenID:      getStringFromData(tokens, "open_id"),
			AccessToken: getStringFromData(tokens, "access_token"),
		})
	}
	return refs, nil
}

// accountOwner returns the uid of an account document when it sits at
// users/{uid}/SocialMediaPlatforms/TikTok/Accounts/{username}. Accounts
// collections elsewhere in the database are ignored.
func accountOwner(ref *firestore.DocumentRef) (string, bool) {
	accounts := ref.Parent
	if accounts == nil || accounts.ID != accountsCollection {
		return "", false
	}
	platform := accounts.Parent
	if platform == nil || platform.ID != models.PlatformTikTok {
		return "", false
	}
	platforms := platform.Parent
	if platforms == nil || platforms.ID != platformsCollection {
		return "", false
	}
	user := platforms.Parent
	if user == nil || user.Parent == nil || user.Parent.ID != usersCollection {
		return "", false
	}
	return user.ID, true
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func getStringFromData(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}

func getInt64FromData(data map[string]interface{}, key string) int64 {
	switch val := data[key].(type) {
	case int64:
		return val
	case float64:
		return int64(val)
	}
	return 0
}
