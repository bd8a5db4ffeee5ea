package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

// Errors returned by the academy service.
var (
	ErrAcademyNotFound   = errors.New("academy not found")
	ErrAlreadyReviewed   = errors.New("academy has already been reviewed")
	ErrInvalidReviewVerb = errors.New("action must be approve or reject")
)

// AcademyStore defines the DB methods needed to review a registration.
// Satisfied by *database.Queries (and its WithTx variant).
type AcademyStore interface {
	GetAcademyForUpdate(ctx context.Context, id uuid.UUID) (database.Academy, error)
	UpdateAcademyStatus(ctx context.Context, arg database.UpdateAcademyStatusParams) (database.Academy, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
}

// NewAcademyStore creates an AcademyStore from a DBTX (pool or tx).
type NewAcademyStore func(db database.DBTX) AcademyStore

// ReviewResult is the reviewed academy and, on approval, its new admin account.
type ReviewResult struct {
	Academy database.Academy
	Admin   *database.User
}

// AcademyService runs the pending -> approved | rejected workflow.
type AcademyService struct {
	pool     TxBeginner
	newStore NewAcademyStore
}

// NewAcademyService creates a new AcademyService.
func NewAcademyService(pool TxBeginner, newStore NewAcademyStore) *AcademyService {
	return &AcademyService{pool: pool, newStore: newStore}
}

// Review applies action to a pending academy. Approval provisions an admin
// user from the registration's stored password hash; rejection only flips
// the status.
func (s *AcademyService) Review(ctx context.Context, academyID, reviewerID uuid.UUID, action string) (*ReviewResult, error) {
	var status string
	switch action {
	case ReviewApprove:
		status = enum.AcademyStatusApproved
	case ReviewReject:
		status = enum.AcademyStatusRejected
	default:
		return nil, ErrInvalidReviewVerb
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	academy, err := store.GetAcademyForUpdate(ctx, academyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAcademyNotFound
		}
		return nil, fmt.Errorf("get academy: %w", err)
	}
	if academy.Status != enum.AcademyStatusPending {
		return nil, ErrAlreadyReviewed
	}

	result := &ReviewResult{}
	if status == enum.AcademyStatusApproved {
		fullName := academy.ContactPerson
		if fullName == "" {
			fullName = academy.Name
		}
		user, err := store.CreateUser(ctx, database.CreateUserParams{
			AcademyID:      pgtype.UUID{Bytes: academy.ID, Valid: true},
			Email:          academy.Email,
			HashedPassword: academy.PasswordHash,
			FullName:       fullName,
			Role:           enum.RoleAdmin,
			Phone:          academy.Phone,
		})
		if err != nil {
			return nil, fmt.Errorf("create academy admin: %w", err)
		}
		result.Admin = &user
	}

	academy, err = store.UpdateAcademyStatus(ctx, database.UpdateAcademyStatusParams{
		ID:         academy.ID,
		Status:     status,
		ReviewedBy: reviewerID,
	})
	if err != nil {
		return nil, fmt.Errorf("update academy status: %w", err)
	}
	result.Academy = academy

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}
