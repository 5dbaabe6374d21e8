package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/dbx"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// AccountService registers and logs in customers and restaurant owners.
// Guests never have accounts; see TokenService.IssueGuest.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	cost        int
	dummyHash   []byte
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService, cost int) (*AccountService, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// compared against when the email is unknown so both paths cost one bcrypt
	dummy, err := bcrypt.GenerateFromPassword([]byte("foodhub-dummy-password"), cost)
	if err != nil {
		return nil, err
	}
	return &AccountService{db: db, repomanager: m, tokens: tokens, cost: cost, dummyHash: dummy}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the account and issues its first token pair in one transaction.
func (s *AccountService) Register(ctx context.Context, email, password string, userType models.UserType) (*models.Account, *TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}
	if userType != models.UserTypeCustomer && userType != models.UserTypeRestaurantOwner {
		return nil, nil, fmt.Errorf("%w: user type %q cannot register", common.ErrorValidation, userType)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrorValidation, err)
	}

	var (
		account *models.Account
		pair    *TokenPair
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		account, err = s.repomanager.Users(tx).Create(ctx, &models.Account{
			Email:        email,
			PasswordHash: string(hash),
			UserType:     userType,
		})
		if err != nil {
			return err
		}

		p, err := account.Principal()
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrTokenIssuanceFailed, err)
		}

		pair, err = s.tokens.issue(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return account, pair, nil
}

// Login verifies credentials and issues a new pair. Unknown email and wrong
// password both yield common.ErrorUnauthorized.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.Account, *TokenPair, error) {
	account, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	p, err := account.Principal()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrTokenIssuanceFailed, err)
	}

	pair, err := s.tokens.Issue(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}
