// Package identity maps weak caller signals — phone numbers, emails, spoken
// names — onto accounts and tenants.
package identity

import (
	"context"

	"go.uber.org/zap"

	"github.com/leaseline/leaseline/internal/model"
	"github.com/leaseline/leaseline/internal/phone"
	"github.com/leaseline/leaseline/internal/store"
)

// Resolver finds the account that owns a phone number, directly or through
// the purchased-number assignment table.
type Resolver struct {
	store store.Store
}

// NewResolver creates an account resolver backed by the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// accountTypeOrder fixes the lookup precedence: realtors before property
// managers.
var accountTypeOrder = []model.AccountType{
	model.AccountTypeRealtor,
	model.AccountTypePropertyManager,
}

// ResolveAccount finds the account owning the given canonical phone number.
// Lookup order, short-circuiting on first hit: exact contact match then
// normalized full scan per account type, then the same pair of passes over
// assigned purchased numbers. A miss returns (nil, nil) — an unidentified
// caller is not an error.
func (r *Resolver) ResolveAccount(ctx context.Context, phoneNumber string) (*model.AccountMatch, error) {
	for _, typ := range accountTypeOrder {
		account, err := r.store.AccountByPhone(ctx, typ, phoneNumber)
		if err != nil {
			return nil, err
		}
		if account == nil {
			// Stored contacts are not guaranteed canonical; rescan with
			// normalization.
			account, err = r.scanAccounts(ctx, typ, phoneNumber)
			if err != nil {
				return nil, err
			}
		}
		if account != nil {
			return r.match(ctx, account, phoneNumber)
		}
	}

	number, err := r.store.PurchasedNumberByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	if number == nil {
		number, err = r.scanPurchasedNumbers(ctx, phoneNumber)
		if err != nil {
			return nil, err
		}
	}
	if number != nil {
		account, err := r.store.AccountByID(ctx, number.AssignedToType, number.AssignedToID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			zap.L().Warn("purchased number assigned to missing account",
				zap.String("number", number.Number),
				zap.String("assigned_to_id", number.AssignedToID),
			)
			return nil, nil
		}
		return r.match(ctx, account, phoneNumber)
	}

	return nil, nil
}

func (r *Resolver) scanAccounts(ctx context.Context, typ model.AccountType, phoneNumber string) (*model.Account, error) {
	accounts, err := r.store.ListAccounts(ctx, typ)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].ContactPhone != "" && phone.Normalize(accounts[i].ContactPhone) == phoneNumber {
			return &accounts[i], nil
		}
	}
	return nil, nil
}

func (r *Resolver) scanPurchasedNumbers(ctx context.Context, phoneNumber string) (*model.PurchasedPhoneNumber, error) {
	numbers, err := r.store.ListAssignedNumbers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range numbers {
		if phone.Normalize(numbers[i].Number) == phoneNumber {
			return &numbers[i], nil
		}
	}
	return nil, nil
}

// match attaches the account's access scope and wraps it in an AccountMatch.
func (r *Resolver) match(ctx context.Context, account *model.Account, phoneNumber string) (*model.AccountMatch, error) {
	sources, err := r.store.AccountSources(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.AccessScope = sources

	zap.L().Debug("account resolved",
		zap.String("account_id", account.ID),
		zap.String("account_type", string(account.Type)),
		zap.String("phone", phoneNumber),
	)
	return &model.AccountMatch{Account: *account, Phone: phoneNumber}, nil
}
