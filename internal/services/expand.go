// internal/services/expand.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
)

// References between documents are plain ids. The types below are the read
// side joins the API returns in their place.

type ExpandedVerification struct {
	models.Verification
	Verifier *models.UserSummary `json:"verifier"`
}

type ExpandedCredential struct {
	models.Credential
	Issuer       *models.UserSummary    `json:"issuer"`
	Holder       *models.UserSummary    `json:"holder"`
	Product      *models.ProductSummary `json:"product,omitempty"`
	Verification *ExpandedVerification  `json:"verification,omitempty"`
}

type CredentialSummary struct {
	ID        uuid.UUID               `json:"id"`
	Name      string                  `json:"name"`
	Type      models.CredentialType   `json:"type"`
	Status    models.CredentialStatus `json:"status"`
	ExpiresAt time.Time               `json:"expiresAt"`
}

type ExpandedProduct struct {
	models.Product
	Producer       *models.UserSummary `json:"producer"`
	Certifications []CredentialSummary `json:"certifications"`
}

// ExpandCredential joins one credential with its participants. Profiles are
// included, matching the detail view.
func ExpandCredential(ctx context.Context, store repository.Store, c *models.Credential) (*ExpandedCredential, error) {
	expanded, err := ExpandCredentials(ctx, store, []models.Credential{*c}, true)
	if err != nil {
		return nil, err
	}
	return &expanded[0], nil
}

// ExpandCredentials joins a page of credentials with two batch lookups.
func ExpandCredentials(ctx context.Context, store repository.Store, credentials []models.Credential, withProfile bool) ([]ExpandedCredential, error) {
	var userIDs, productIDs []uuid.UUID
	for _, c := range credentials {
		userIDs = append(userIDs, c.IssuerID, c.HolderID)
		if c.Verification != nil {
			userIDs = append(userIDs, c.Verification.Verifier)
		}
		if c.ProductID != nil {
			productIDs = append(productIDs, *c.ProductID)
		}
	}

	users, err := store.Users().GetByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		return nil, err
	}
	products, err := store.Products().GetByIDs(ctx, uniqueIDs(productIDs))
	if err != nil {
		return nil, err
	}

	out := make([]ExpandedCredential, 0, len(credentials))
	for _, c := range credentials {
		e := ExpandedCredential{
			Credential: c,
			Issuer:     userSummary(users, c.IssuerID, withProfile),
			Holder:     userSummary(users, c.HolderID, withProfile),
		}
		if c.ProductID != nil {
			if p, ok := products[*c.ProductID]; ok {
				e.Product = p.Summary()
			} else {
				e.Product = &models.ProductSummary{ID: c.ProductID.String()}
			}
		}
		if c.Verification != nil {
			e.Verification = &ExpandedVerification{
				Verification: *c.Verification,
				Verifier:     userSummary(users, c.Verification.Verifier, false),
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func ExpandProduct(ctx context.Context, store repository.Store, p *models.Product) (*ExpandedProduct, error) {
	expanded, err := ExpandProducts(ctx, store, []models.Product{*p}, true)
	if err != nil {
		return nil, err
	}
	return &expanded[0], nil
}

// ExpandProducts joins products with their producers and certifying
// credentials.
func ExpandProducts(ctx context.Context, store repository.Store, products []models.Product, withProfile bool) ([]ExpandedProduct, error) {
	var producerIDs []uuid.UUID
	credentialIDs := []uuid.UUID{}
	for _, p := range products {
		producerIDs = append(producerIDs, p.ProducerID)
		for _, raw := range p.Certifications {
			if id, err := uuid.Parse(raw); err == nil {
				credentialIDs = append(credentialIDs, id)
			}
		}
	}

	users, err := store.Users().GetByIDs(ctx, uniqueIDs(producerIDs))
	if err != nil {
		return nil, err
	}

	credentials := map[uuid.UUID]models.Credential{}
	if len(credentialIDs) > 0 {
		found, _, err := store.Credentials().List(ctx, repository.CredentialFilter{IDs: uniqueIDs(credentialIDs)})
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			credentials[c.ID] = c
		}
	}

	out := make([]ExpandedProduct, 0, len(products))
	for _, p := range products {
		e := ExpandedProduct{
			Product:        p,
			Producer:       userSummary(users, p.ProducerID, withProfile),
			Certifications: []CredentialSummary{},
		}
		for _, raw := range p.Certifications {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			if c, ok := credentials[id]; ok {
				e.Certifications = append(e.Certifications, CredentialSummary{
					ID:        c.ID,
					Name:      c.Name,
					Type:      c.Type,
					Status:    c.Status,
					ExpiresAt: c.ValidityPeriod.ExpiresAt,
				})
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// userSummary falls back to a bare id when the user no longer exists.
func userSummary(users map[uuid.UUID]models.User, id uuid.UUID, withProfile bool) *models.UserSummary {
	if u, ok := users[id]; ok {
		return u.Summary(withProfile)
	}
	return &models.UserSummary{ID: id.String()}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
