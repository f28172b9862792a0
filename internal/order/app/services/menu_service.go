package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"room-service/internal/order/app/core"
	"room-service/internal/order/domain/dto"
	"room-service/internal/order/domain/models"
	"room-service/internal/xpkg/logger"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	menuCacheSize   = 32
	defaultCategory = "Misc"
)

// SampleMenu is installed on first start when the catalog is empty.
var SampleMenu = []models.MenuItem{
	{ItemKey: "paneer_tikka", Name: "Paneer Tikka Masala", Description: "Cottage cheese in spiced tomato gravy", Price: 255, Category: "Main"},
	{ItemKey: "garlic_fried_rice", Name: "Garlic Fried Rice", Description: "Wok tossed rice with garlic", Price: 180, Category: "Rice"},
	{ItemKey: "veg_biryani", Name: "Veg Biryani", Description: "Basmati rice with vegetables and whole spices", Price: 220, Category: "Rice"},
	{ItemKey: "butter_chicken", Name: "Butter Chicken", Description: "Chicken in creamy tomato sauce", Price: 285, Category: "Main"},
	{ItemKey: "dal_makhani", Name: "Dal Makhani", Description: "Slow cooked black lentils", Price: 200, Category: "Main"},
	{ItemKey: "naan", Name: "Butter Naan", Description: "Tandoor baked flatbread", Price: 60, Category: "Bread"},
}

type MenuService struct {
	menuRepo core.IMenuRepo
	cache    *lru.Cache[string, []models.MenuItem]
	mylog    logger.Logger

	// gen changes after every committed menu write. A read fills the cache
	// only if gen did not move while it was querying.
	mu  sync.Mutex
	gen uint64
}

func NewMenuService(menuRepo core.IMenuRepo, mylog logger.Logger) (*MenuService, error) {
	cache, err := lru.New[string, []models.MenuItem](menuCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create menu cache: %w", err)
	}
	return &MenuService{
		menuRepo: menuRepo,
		cache:    cache,
		mylog:    mylog,
	}, nil
}

// Get returns the menu of version, ordered by category and name. An unknown
// version yields an empty menu.
func (ms *MenuService) Get(ctx context.Context, version string) ([]models.MenuItem, error) {
	if items, ok := ms.cache.Get(version); ok {
		return items, nil
	}

	ms.mu.Lock()
	gen := ms.gen
	ms.mu.Unlock()

	items, err := ms.menuRepo.GetByVersion(ctx, version)
	if err != nil {
		ms.mylog.Action("get_menu").Error("Failed to load menu", err, "version", version)
		return nil, err
	}

	ms.mu.Lock()
	if ms.gen == gen {
		ms.cache.Add(version, items)
	}
	ms.mu.Unlock()
	return items, nil
}

func (ms *MenuService) invalidate(version string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.gen++
	ms.cache.Remove(version)
}

// Upload replaces the whole menu of version.
func (ms *MenuService) Upload(ctx context.Context, version string, req dto.MenuUploadRequest) (int, error) {
	mylog := ms.mylog.Action("upload_menu")

	version = strings.TrimSpace(version)
	if version == "" {
		return 0, fmt.Errorf("%w: version: %w", core.ErrValidation, core.ErrFieldIsEmpty)
	}

	items := make([]models.MenuItem, 0, len(req.Items))
	for i, in := range req.Items {
		item := models.MenuItem{
			Version:     version,
			ItemKey:     strings.TrimSpace(in.ItemKey),
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Price:       in.Price,
			Category:    strings.TrimSpace(in.Category),
			Image:       in.Image,
		}
		if item.ItemKey == "" {
			return 0, fmt.Errorf("%w: item %d: item_key: %w", core.ErrValidation, i+1, core.ErrFieldIsEmpty)
		}
		if item.Name == "" {
			return 0, fmt.Errorf("%w: item %d: name: %w", core.ErrValidation, i+1, core.ErrFieldIsEmpty)
		}
		if item.Price < 0 {
			return 0, fmt.Errorf("%w: item %d: price: %d, must not be negative", core.ErrValidation, i+1, item.Price)
		}
		if item.Category == "" {
			item.Category = defaultCategory
		}
		items = append(items, item)
	}

	n, err := ms.menuRepo.Replace(ctx, version, items)
	ms.invalidate(version)
	if err != nil {
		mylog.Error("Failed to replace menu", err, "version", version)
		return 0, err
	}

	mylog.Info("Menu replaced", "version", version, "count", n)
	return n, nil
}

// Seed installs SampleMenu as version if the catalog has no items at all.
func (ms *MenuService) Seed(ctx context.Context, version string) error {
	seeded, err := ms.menuRepo.SeedIfEmpty(ctx, version, SampleMenu)
	if err != nil {
		return fmt.Errorf("seed menu: %w", err)
	}
	if seeded {
		ms.invalidate(version)
		ms.mylog.Action("menu_seeded").Info("Installed sample menu", "version", version, "count", len(SampleMenu))
	}
	return nil
}
