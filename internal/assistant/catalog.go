package assistant

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/mkulima/asha/internal/firestore"
	"github.com/mkulima/asha/internal/models"
)

// DocumentStore is the subset of the document store client used by the
// catalog.
type DocumentStore interface {
	GetDocument(ctx context.Context, path string) (*firestore.Document, error)
	RunQuery(ctx context.Context, q firestore.Query) ([]firestore.Document, error)
}

// Catalog reads marketplace listings, farms and caller profiles from the
// document store. Every read rebuilds the canonical shape from raw fields.
type Catalog struct {
	store DocumentStore
}

// NewCatalog creates a catalog over store.
//
// Example:
//
//	catalog := assistant.NewCatalog(firestore.NewClient(cfg.ServiceAccount.DocumentsURL, cfg.Identity.ProjectID, minter, nil))
//	listings, err := catalog.ActiveListings(ctx, 50)
func NewCatalog(store DocumentStore) *Catalog {
	return &Catalog{store: store}
}

// ActiveListings returns up to limit active listings, newest first.
// Ordering happens here rather than in the query: listings without
// createdAt stay in the result, sorted last, and no composite index is
// needed.
func (c *Catalog) ActiveListings(ctx context.Context, limit int) ([]models.Listing, error) {
	docs, err := c.store.RunQuery(ctx, firestore.Query{
		Collection: "listings",
		Filters:    []firestore.Filter{firestore.Where("status", firestore.OpEqual, "active")},
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	listings := make([]models.Listing, 0, len(docs))
	for i := range docs {
		listings = append(listings, NormalizeListing(docs[i].ID(), docs[i].Data()))
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return newerThan(listings[i].CreatedAt, listings[j].CreatedAt)
	})
	return listings, nil
}

// newerThan orders timestamps descending with missing ones last.
func newerThan(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.After(*b)
}

// Farm returns the farm with farmID when it belongs to uid. A missing farm
// and a farm owned by someone else both return nil.
func (c *Catalog) Farm(ctx context.Context, uid, farmID string) (*models.Farm, error) {
	if farmID == "" {
		return nil, nil
	}
	doc, err := c.store.GetDocument(ctx, "farms/"+url.PathEscape(farmID))
	if err != nil {
		return nil, fmt.Errorf("failed to get farm: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	farm := normalizeFarm(doc.ID(), doc.Data())
	if farm.OwnerID != uid {
		return nil, nil
	}
	return &farm, nil
}

// FirstFarm returns one farm owned by uid, or nil when the caller has none.
// Farms are matched on ownerId first, then on the older userId field.
func (c *Catalog) FirstFarm(ctx context.Context, uid string) (*models.Farm, error) {
	for _, field := range []string{"ownerId", "userId"} {
		docs, err := c.store.RunQuery(ctx, firestore.Query{
			Collection: "farms",
			Filters:    []firestore.Filter{firestore.Where(field, firestore.OpEqual, uid)},
			Limit:      1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query farms: %w", err)
		}
		if len(docs) > 0 {
			farm := normalizeFarm(docs[0].ID(), docs[0].Data())
			return &farm, nil
		}
	}
	return nil, nil
}

// Profile returns the caller's stored checkout profile, or nil when the
// caller has no user document.
func (c *Catalog) Profile(ctx context.Context, uid string) (*models.Profile, error) {
	doc, err := c.store.GetDocument(ctx, "users/"+url.PathEscape(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	profile := normalizeProfile(doc.Data())
	return &profile, nil
}
