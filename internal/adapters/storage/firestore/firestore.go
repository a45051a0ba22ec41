// Package firestore guarda usuarios, perfiles y pesos con el layout
// users/{uid}, users/{uid}/pet/profile y users/{uid}/weights/{id}.
package firestore

import (
	"context"
	"errors"
	"time"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pet-wellness/internal/domain/profiles"
	"pet-wellness/internal/domain/session"
	"pet-wellness/internal/domain/weights"
)

const (
	usersCollection   = "users"
	petCollection     = "pet"
	profileDoc        = "profile"
	weightsCollection = "weights"
)

// Open crea el cliente. Con FIRESTORE_EMULATOR_HOST seteado apunta al emulador.
func Open(ctx context.Context, projectID string) (*gfs.Client, error) {
	if projectID == "" {
		return nil, errors.New("firestore: project id required")
	}
	return gfs.NewClient(ctx, projectID)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

type userDoc struct {
	Email      string    `firestore:"email"`
	Subscribed bool      `firestore:"isSubscribed"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

type profileDocument struct {
	ID          string    `firestore:"id"`
	OwnerUserID string    `firestore:"ownerUserId"`
	Name        string    `firestore:"name"`
	Species     string    `firestore:"species"`
	Breed       string    `firestore:"breed"`
	Age         float64   `firestore:"age"`
	Weight      float64   `firestore:"weight"`
	Allergies   string    `firestore:"allergies"`
	HealthGoal  string    `firestore:"healthGoal"`
	AvatarURL   string    `firestore:"avatarUrl"`
	Subscribed  bool      `firestore:"isSubscribed"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func toProfileDocument(p profiles.Profile) profileDocument {
	return profileDocument{
		ID:          p.ID,
		OwnerUserID: p.OwnerUserID,
		Name:        p.Name,
		Species:     string(p.Species),
		Breed:       p.Breed,
		Age:         p.Age,
		Weight:      p.Weight,
		Allergies:   p.Allergies,
		HealthGoal:  string(p.HealthGoal),
		AvatarURL:   p.AvatarURL,
		Subscribed:  p.Subscribed,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d profileDocument) toProfile() profiles.Profile {
	return profiles.Profile{
		ID:          d.ID,
		OwnerUserID: d.OwnerUserID,
		Name:        d.Name,
		Species:     profiles.Species(d.Species),
		Breed:       d.Breed,
		Age:         d.Age,
		Weight:      d.Weight,
		Allergies:   d.Allergies,
		HealthGoal:  profiles.HealthGoal(d.HealthGoal),
		AvatarURL:   d.AvatarURL,
		Subscribed:  d.Subscribed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type weightDoc struct {
	Weight     float64   `firestore:"weight"`
	RecordedAt time.Time `firestore:"recordedAt"`
}

// ---- users ----

type UserRepo struct {
	client *gfs.Client
	now    func() time.Time
}

func NewUserRepo(client *gfs.Client) *UserRepo {
	return &UserRepo{client: client, now: time.Now}
}

func (r *UserRepo) doc(id string) *gfs.DocumentRef {
	return r.client.Collection(usersCollection).Doc(id)
}

func (r *UserRepo) Get(ctx context.Context, id string) (session.User, error) {
	snap, err := r.doc(id).Get(ctx)
	if isNotFound(err) {
		return session.User{}, session.ErrUserNotFound
	}
	if err != nil {
		return session.User{}, err
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return session.User{}, err
	}
	return session.User{
		ID:         id,
		Email:      d.Email,
		Subscribed: d.Subscribed,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

func (r *UserRepo) Create(ctx context.Context, u session.User) error {
	_, err := r.doc(u.ID).Create(ctx, userDoc{
		Email:      u.Email,
		Subscribed: u.Subscribed,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	})
	if isAlreadyExists(err) {
		return session.ErrUserExists
	}
	return err
}

func (r *UserRepo) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	_, err := r.doc(id).Update(ctx, []gfs.Update{
		{Path: "isSubscribed", Value: subscribed},
		{Path: "updatedAt", Value: r.now().UTC()},
	})
	if isNotFound(err) {
		return session.ErrUserNotFound
	}
	return err
}

// ---- profiles ----

type ProfileRepo struct {
	client *gfs.Client
}

func NewProfileRepo(client *gfs.Client) *ProfileRepo {
	return &ProfileRepo{client: client}
}

func (r *ProfileRepo) doc(ownerUserID string) *gfs.DocumentRef {
	return r.client.Collection(usersCollection).Doc(ownerUserID).Collection(petCollection).Doc(profileDoc)
}

func (r *ProfileRepo) Get(ctx context.Context, ownerUserID string) (profiles.Profile, error) {
	snap, err := r.doc(ownerUserID).Get(ctx)
	if isNotFound(err) {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	if err != nil {
		return profiles.Profile{}, err
	}
	var d profileDocument
	if err := snap.DataTo(&d); err != nil {
		return profiles.Profile{}, err
	}
	return d.toProfile(), nil
}

func (r *ProfileRepo) Put(ctx context.Context, p profiles.Profile) error {
	_, err := r.doc(p.OwnerUserID).Set(ctx, toProfileDocument(p))
	return err
}

// Delete no falla si el documento no existe.
func (r *ProfileRepo) Delete(ctx context.Context, ownerUserID string) error {
	_, err := r.doc(ownerUserID).Delete(ctx)
	if isNotFound(err) {
		return nil
	}
	return err
}

// ---- weights ----

type WeightRepo struct {
	client *gfs.Client
}

func NewWeightRepo(client *gfs.Client) *WeightRepo {
	return &WeightRepo{client: client}
}

func (r *WeightRepo) col(ownerUserID string) *gfs.CollectionRef {
	return r.client.Collection(usersCollection).Doc(ownerUserID).Collection(weightsCollection)
}

func (r *WeightRepo) Add(ctx context.Context, e weights.Entry) error {
	_, err := r.col(e.OwnerUserID).Doc(e.ID).Set(ctx, weightDoc{Weight: e.Weight, RecordedAt: e.RecordedAt})
	return err
}

func (r *WeightRepo) ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]weights.Entry, error) {
	iter := r.col(ownerUserID).
		OrderBy("recordedAt", gfs.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	out := make([]weights.Entry, 0, limit)
	for {
		s, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var d weightDoc
		if err := s.DataTo(&d); err != nil {
			return nil, err
		}
		out = append(out, weights.Entry{
			ID:          s.Ref.ID,
			OwnerUserID: ownerUserID,
			Weight:      d.Weight,
			RecordedAt:  d.RecordedAt,
		})
	}
	return out, nil
}
