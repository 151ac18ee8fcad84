package repo

import (
	"SupplyRun/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository is the account storage used by the identity provider.
// Lookups that find nothing return gorm.ErrRecordNotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByExternal(ctx context.Context, issuer, subject string) (*model.User, error)
	// LinkExternal attaches an external identity to a user. Linking the same
	// (issuer, subject) twice is a no-op.
	LinkExternal(ctx context.Context, link *model.ExternalIdentity) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository returns the gorm backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetUserByExternal(ctx context.Context, issuer, subject string) (*model.User, error) {
	var link model.ExternalIdentity
	err := r.db.WithContext(ctx).
		Where("issuer = ? AND subject = ?", issuer, subject).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, link.UserID)
}

func (r *userRepo) LinkExternal(ctx context.Context, link *model.ExternalIdentity) error {
	if link.UserID == "" {
		return errors.New("external link without user")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "issuer"}, {Name: "subject"}},
		DoNothing: true,
	}).Create(link).Error
}
