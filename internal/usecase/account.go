package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/bizchat/bizchat-api/internal/model"
	"github.com/bizchat/bizchat-api/internal/repository"
	"github.com/bizchat/bizchat-api/shared/provider"
)

// AccountUsecase defines the account lifecycle transitions: sign-in,
// profile completion, verification code reissue, and email verification.
type AccountUsecase interface {
	// SignIn creates the user record on first sign-in or refreshes
	// presence on subsequent ones. Any store failure aborts the sign-in;
	// the identity is not considered authenticated in that case.
	SignIn(ctx context.Context, identity *provider.ExternalIdentity) (*model.User, error)

	// CompleteProfile persists the profile fields and issues the first
	// verification code, returning the fresh code.
	CompleteProfile(ctx context.Context, userID string, params CompleteProfileParams) (string, error)

	// ResendVerification issues a fresh verification code, replacing any
	// outstanding one. Returns ErrAlreadyVerified without mutating the
	// record if the email is already verified.
	ResendVerification(ctx context.Context, userID string) (string, error)

	// VerifyEmail consumes a verification code exactly once: a correct,
	// unexpired code flips the verified flag and clears the code fields.
	VerifyEmail(ctx context.Context, userID, code string) error
}

// CompleteProfileParams defines the parameters for profile completion.
type CompleteProfileParams struct {
	Phone        string
	Role         model.Role
	BusinessRole string
}

// CodeSender delivers a verification code out-of-band.
type CodeSender interface {
	SendVerificationCode(email, code string) error
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyVerified  = errors.New("email already verified")
	ErrInvalidCode      = errors.New("invalid verification code")
	ErrCodeExpired      = errors.New("verification code expired")
	ErrInvalidPhone     = errors.New("phone must be at least 10 characters")
	ErrInvalidRole      = errors.New("invalid role")
	ErrStoreUnavailable = errors.New("user store unavailable")
)

const (
	minPhoneLength     = 10
	codeLength         = 6
	codeValidityWindow = 24 * time.Hour
)

type accountUsecase struct {
	userRepo repository.UserRepository
	sender   CodeSender
	logger   *zerolog.Logger
}

// NewAccountUsecase creates a new instance of AccountUsecase.
func NewAccountUsecase(
	userRepo repository.UserRepository,
	sender CodeSender,
	logger *zerolog.Logger,
) AccountUsecase {
	return &accountUsecase{
		userRepo: userRepo,
		sender:   sender,
		logger:   logger,
	}
}

func (u *accountUsecase) SignIn(ctx context.Context, identity *provider.ExternalIdentity) (*model.User, error) {
	user, err := u.userRepo.GetUser(ctx, identity.ID)
	if err == nil {
		return u.refreshPresence(ctx, user)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storeErr(err)
	}

	now := time.Now()
	user = &model.User{
		ID:          identity.ID,
		Email:       identity.Email,
		FullName:    identity.FullName,
		AvatarURL:   identity.AvatarURL,
		GoogleID:    identity.ID,
		Verified:    false,
		Status:      model.StatusOnline,
		LastSeenAt:  now,
		Preferences: model.DefaultPreferences(),
		Settings:    model.DefaultSettings(),
	}

	created, err := u.userRepo.CreateUser(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a concurrent first sign-in for the same identity; the
			// record exists now, so fall back to the refresh path.
			existing, getErr := u.userRepo.GetUser(ctx, identity.ID)
			if getErr != nil {
				return nil, storeErr(getErr)
			}
			return u.refreshPresence(ctx, existing)
		}

		return nil, storeErr(err)
	}

	return created, nil
}

func (u *accountUsecase) CompleteProfile(
	ctx context.Context,
	userID string,
	params CompleteProfileParams,
) (string, error) {
	if len(params.Phone) < minPhoneLength {
		return "", ErrInvalidPhone
	}
	if !params.Role.Valid() {
		return "", ErrInvalidRole
	}

	user, err := u.userRepo.UpdateProfile(ctx, userID, repository.UpdateProfileParams{
		Phone:        &params.Phone,
		Role:         &params.Role,
		BusinessRole: &params.BusinessRole,
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrUserNotFound
		}
		return "", storeErr(err)
	}

	return u.issueCode(ctx, user)
}

func (u *accountUsecase) ResendVerification(ctx context.Context, userID string) (string, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrUserNotFound
		}
		return "", storeErr(err)
	}

	if user.Verified {
		return "", ErrAlreadyVerified
	}

	return u.issueCode(ctx, user)
}

func (u *accountUsecase) VerifyEmail(ctx context.Context, userID, code string) error {
	if len(code) != codeLength {
		return ErrInvalidCode
	}

	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return storeErr(err)
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	if user.VerificationCode == nil || *user.VerificationCode != code {
		return ErrInvalidCode
	}

	// The stored code is left in place on expiry; the caller is expected
	// to request a resend rather than rely on an automatic reissue.
	if user.VerificationCodeExpiresAt == nil || time.Now().After(*user.VerificationCodeExpiresAt) {
		return ErrCodeExpired
	}

	if _, err := u.userRepo.MarkVerified(ctx, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return storeErr(err)
	}

	return nil
}

// issueCode replaces any outstanding verification code with a fresh one and
// hands it to the delivery channel. Delivery failures are logged, not
// surfaced: the code is still stored and echoed to the caller.
func (u *accountUsecase) issueCode(ctx context.Context, user *model.User) (string, error) {
	code, err := generateVerificationCode()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(codeValidityWindow)
	if _, err := u.userRepo.SetVerificationCode(ctx, user.ID, code, expiresAt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrUserNotFound
		}
		return "", storeErr(err)
	}

	u.logger.Info().
		Str("email", user.Email).
		Str("code", code).
		Msg("verification code issued")

	if u.sender != nil {
		if err := u.sender.SendVerificationCode(user.Email, code); err != nil {
			u.logger.Error().Err(err).Str("email", user.Email).Msg("failed to send verification code")
		}
	}

	return code, nil
}

func (u *accountUsecase) refreshPresence(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	if err := u.userRepo.UpdateStatus(ctx, user.ID, model.StatusOnline, now); err != nil {
		return nil, storeErr(err)
	}

	user.Status = model.StatusOnline
	user.LastSeenAt = now

	return user, nil
}

// generateVerificationCode draws a 6-digit code from the inclusive range
// 100000-999999.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
