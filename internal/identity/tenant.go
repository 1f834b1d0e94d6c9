package identity

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/leaseline/leaseline/internal/model"
	"github.com/leaseline/leaseline/internal/phone"
	"github.com/leaseline/leaseline/internal/store"
)

// Matcher identifies a tenant from partial phone/email/name signals. None of
// the signals are guaranteed unique or exactly formatted, so candidates are
// scored and the best one wins.
type Matcher struct {
	store   store.Store
	weights Weights
}

// NewMatcher creates a tenant matcher backed by the given store.
func NewMatcher(st store.Store, w Weights) *Matcher {
	return &Matcher{store: st, weights: w}
}

// IdentifyInput carries the signals for tenant identification. At least one
// of Phone, Email, or Name must be set. PropertyManagerID optionally scopes
// the search for tenant isolation.
type IdentifyInput struct {
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
	PropertyManagerID string `json:"property_manager_id,omitempty"`
}

// candidate pairs a tenant with its transient match score.
type candidate struct {
	tenant model.Tenant
	score  int
}

// titleWords and suffixWords are stripped from names before comparison.
var titleWords = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true, "dr": true, "prof": true,
}

var suffixWords = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
}

// IdentifyTenant finds the best-scoring active tenant for the given signals.
// With no signals it returns (nil, nil) immediately. A matched tenant whose
// property or property manager cannot be resolved also yields (nil, nil):
// a tenant without a resolvable property is not a valid result.
func (m *Matcher) IdentifyTenant(ctx context.Context, in IdentifyInput) (*model.TenantMatch, error) {
	if in.Phone == "" && in.Email == "" && in.Name == "" {
		return nil, nil
	}

	normPhone := ""
	if in.Phone != "" {
		normPhone = phone.Normalize(in.Phone)
	}
	cleanName, first, last := CleanName(in.Name)

	q := store.TenantQuery{
		Phone:             normPhone,
		Email:             strings.TrimSpace(in.Email),
		Name:              cleanName,
		NameFirst:         first,
		NameLast:          last,
		PropertyManagerID: in.PropertyManagerID,
	}
	tenants, err := m.store.FindTenantCandidates(ctx, q)
	if err != nil {
		return nil, err
	}

	if len(tenants) == 0 {
		if normPhone == "" {
			return nil, nil
		}
		// Stored and input numbers may differ only in country-code
		// formatting; fall back to last-10-digit suffix matching.
		return m.fuzzyPhoneMatch(ctx, normPhone, in.PropertyManagerID)
	}

	candidates := make([]candidate, 0, len(tenants))
	for _, t := range tenants {
		candidates = append(candidates, candidate{
			tenant: t,
			score:  m.score(t, normPhone, q.Email, cleanName),
		})
	}

	// Stable sort keeps the store's creation order for equal scores, so
	// ties resolve deterministically rather than by query whim.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	top := candidates[0]
	if len(candidates) > 1 && candidates[1].score == top.score {
		zap.L().Warn("ambiguous tenant match, keeping first by creation order",
			zap.String("tenant_id", top.tenant.ID),
			zap.String("runner_up_id", candidates[1].tenant.ID),
			zap.Int("score", top.score),
		)
	}

	return m.finishMatch(ctx, top.tenant, top.score)
}

// score sums the best-applicable sub-score per signal type.
func (m *Matcher) score(t model.Tenant, normPhone, email, name string) int {
	total := 0

	if normPhone != "" && t.Phone != "" {
		stored := phone.Normalize(t.Phone)
		switch {
		case stored == normPhone:
			total += m.weights.PhoneExact
		case strings.Contains(stored, normPhone) || strings.Contains(normPhone, stored):
			total += m.weights.PhoneSubstring
		}
	}

	if email != "" && t.Email != "" {
		in := fold(email)
		stored := fold(t.Email)
		switch {
		case stored == in:
			total += m.weights.EmailExact
		case strings.Contains(stored, in) || strings.Contains(in, stored):
			total += m.weights.EmailSubstring
		}
	}

	if name != "" && t.Name != "" {
		in := fold(name)
		stored := fold(t.Name)
		switch {
		case stored == in:
			total += m.weights.NameExact
		case strings.Contains(stored, in):
			total += m.weights.NameInputInStored
		case strings.Contains(in, stored):
			total += m.weights.NameStoredInInput
		}
	}

	return total
}

// fuzzyPhoneMatch scans active tenants for a last-10-digit suffix match.
func (m *Matcher) fuzzyPhoneMatch(ctx context.Context, normPhone, propertyManagerID string) (*model.TenantMatch, error) {
	suffix := phone.LastDigits(normPhone, 10)
	if suffix == "" {
		return nil, nil
	}

	tenants, err := m.store.ListActiveTenants(ctx, propertyManagerID)
	if err != nil {
		return nil, err
	}
	for _, t := range tenants {
		if t.Phone != "" && phone.LastDigits(t.Phone, 10) == suffix {
			zap.L().Debug("tenant matched by phone suffix",
				zap.String("tenant_id", t.ID),
				zap.String("suffix", suffix),
			)
			return m.finishMatch(ctx, t, m.weights.PhoneSuffix)
		}
	}
	return nil, nil
}

// finishMatch resolves the tenant's property and property manager.
func (m *Matcher) finishMatch(ctx context.Context, t model.Tenant, score int) (*model.TenantMatch, error) {
	property, err := m.store.PropertyByID(ctx, t.PropertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		zap.L().Warn("matched tenant has no resolvable property",
			zap.String("tenant_id", t.ID),
			zap.String("property_id", t.PropertyID),
		)
		return nil, nil
	}

	manager, err := m.store.AccountByID(ctx, model.AccountTypePropertyManager, t.PropertyManagerID)
	if err != nil {
		return nil, err
	}
	if manager == nil {
		zap.L().Warn("matched tenant has no resolvable property manager",
			zap.String("tenant_id", t.ID),
			zap.String("property_manager_id", t.PropertyManagerID),
		)
		return nil, nil
	}

	return &model.TenantMatch{
		Tenant:          t,
		Score:           score,
		Property:        *property,
		PropertyManager: *manager,
	}, nil
}

// fold lower-cases s using full Unicode case folding.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// CleanName strips titles (Mr, Mrs, Ms, Miss, Dr, Prof) and generational
// suffixes (Jr, Sr, II, III, IV) from a name and returns the cleaned name
// plus its first and last tokens.
func CleanName(name string) (clean, first, last string) {
	if strings.TrimSpace(name) == "" {
		return "", "", ""
	}

	var kept []string
	for _, tok := range strings.Fields(name) {
		bare := strings.ToLower(strings.Trim(tok, ".,"))
		if titleWords[bare] || suffixWords[bare] {
			continue
		}
		kept = append(kept, strings.Trim(tok, ","))
	}
	if len(kept) == 0 {
		return "", "", ""
	}

	clean = strings.Join(kept, " ")
	first = kept[0]
	if len(kept) > 1 {
		last = kept[len(kept)-1]
	}
	return clean, first, last
}
