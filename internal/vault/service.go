package vault

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// IDGenerator generates unique IDs for new records
type IDGenerator interface {
	Generate() string
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// RecordStore is the repository surface the service depends on
type RecordStore interface {
	Receipts() ([]Receipt, error)
	SaveReceipt(receipt *Receipt) error
	DeleteReceipt(id string) error
	ReceiptsByTag(tag string) ([]Receipt, error)
	ReceiptsByMonth(year, monthIndex int) ([]Receipt, error)
	RemoveReceiptsMatching(pred func(Receipt) bool) ([]Receipt, error)
	Categories() ([]Category, error)
	SaveCategory(category *Category) error
	DeleteCategory(id string) error
	ClearAll() error
}

// BlobStore is the image store surface the service depends on
type BlobStore interface {
	Put(data []byte) (string, error)
	Get(ref string) ([]byte, error)
	Delete(ref string) error
	IsManaged(ref string) bool
	ListRefs() ([]string, error)
}

// SettingsStore is the settings surface the service depends on
type SettingsStore interface {
	AutoClean() AutoCleanSettings
	SaveAutoClean(settings AutoCleanSettings) error
	Currency() CurrencySettings
	SaveCurrency(settings CurrencySettings) error
}

// Service is the data-access contract consumed by callers: it ties the
// repository, image store and settings together and owns the lifecycle
// coupling between a receipt and its managed image blob.
type Service struct {
	records     RecordStore
	images      BlobStore
	settings    SettingsStore
	idGenerator IDGenerator
	timeSource  TimeSource

	cleanMu sync.Mutex
}

// NewService creates a new Service with default ID generator and time source
func NewService(records RecordStore, images BlobStore, settings SettingsStore) *Service {
	return NewServiceWithDeps(records, images, settings, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(records RecordStore, images BlobStore, settings SettingsStore, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		records:     records,
		images:      images,
		settings:    settings,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// LoadReceipts returns all stored receipts
func (s *Service) LoadReceipts() ([]Receipt, error) {
	receipts, err := s.records.Receipts()
	if err != nil {
		return nil, fmt.Errorf("loading receipts: %w", err)
	}
	return receipts, nil
}

// LoadCategories returns all stored categories
func (s *Service) LoadCategories() ([]Category, error) {
	categories, err := s.records.Categories()
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	return categories, nil
}

// LoadReceiptsByTag returns receipts carrying the given tag
func (s *Service) LoadReceiptsByTag(tag string) ([]Receipt, error) {
	receipts, err := s.records.ReceiptsByTag(tag)
	if err != nil {
		return nil, fmt.Errorf("loading receipts by tag: %w", err)
	}
	return receipts, nil
}

// LoadReceiptsByMonth returns receipts dated within the given year and
// zero-based month
func (s *Service) LoadReceiptsByMonth(year, monthIndex int) ([]Receipt, error) {
	receipts, err := s.records.ReceiptsByMonth(year, monthIndex)
	if err != nil {
		return nil, fmt.Errorf("loading receipts by month: %w", err)
	}
	return receipts, nil
}

// SaveReceipt validates and persists a receipt, assigning an ID when
// new. When the save replaces a receipt whose managed image reference
// changed, the superseded blob is released best-effort after the write
// so record and blob stay coupled without a cross-key transaction.
func (s *Service) SaveReceipt(receipt *Receipt) error {
	if violations := ValidateReceipt(*receipt); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	if receipt.ID == "" {
		receipt.ID = s.idGenerator.Generate()
	}

	var staleRef string
	existing, err := s.records.Receipts()
	if err == nil {
		for _, prev := range existing {
			if prev.ID == receipt.ID && prev.ImageURI != receipt.ImageURI && s.images.IsManaged(prev.ImageURI) {
				staleRef = prev.ImageURI
			}
		}
	}

	if err := s.records.SaveReceipt(receipt); err != nil {
		return fmt.Errorf("saving receipt: %w", err)
	}

	if staleRef != "" {
		if err := s.images.Delete(staleRef); err != nil {
			slog.Warn("Failed to release replaced image", "ref", staleRef, "error", err)
		}
	}
	return nil
}

// AttachImage stores raw image bytes and points the receipt at the
// resulting managed reference. The receipt still needs to be saved.
func (s *Service) AttachImage(receipt *Receipt, data []byte) error {
	ref, err := s.images.Put(data)
	if err != nil {
		return fmt.Errorf("attaching image: %w", err)
	}
	receipt.ImageURI = ref
	return nil
}

// DeleteReceipt removes a receipt and releases its managed image blob.
// The blob release is best-effort; the record deletion is not.
func (s *Service) DeleteReceipt(id string) error {
	receipts, err := s.records.Receipts()
	if err == nil {
		for _, receipt := range receipts {
			if receipt.ID == id && s.images.IsManaged(receipt.ImageURI) {
				if err := s.images.Delete(receipt.ImageURI); err != nil {
					slog.Warn("Failed to delete image", "ref", receipt.ImageURI, "error", err)
				}
			}
		}
	}

	if err := s.records.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}

// NewCategory builds a category with a generated time-based ID
func (s *Service) NewCategory(name, color string) *Category {
	return &Category{
		ID:    s.idGenerator.Generate(),
		Name:  name,
		Color: color,
	}
}

// SaveCategory persists a category, assigning an ID when new
func (s *Service) SaveCategory(category *Category) error {
	if category.ID == "" {
		category.ID = s.idGenerator.Generate()
	}
	if err := s.records.SaveCategory(category); err != nil {
		return fmt.Errorf("saving category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category. Receipts keep any tags naming it;
// tags are denormalized free-text labels, not foreign keys.
func (s *Service) DeleteCategory(id string) error {
	if err := s.records.DeleteCategory(id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// ExportData returns a snapshot of both collections for serialization
// outside the core
func (s *Service) ExportData() (Snapshot, error) {
	receipts, err := s.records.Receipts()
	if err != nil {
		return Snapshot{}, fmt.Errorf("exporting receipts: %w", err)
	}
	categories, err := s.records.Categories()
	if err != nil {
		return Snapshot{}, fmt.Errorf("exporting categories: %w", err)
	}
	return Snapshot{Receipts: receipts, Categories: categories}, nil
}

// ResolveImage resolves an image reference to displayable bytes
func (s *Service) ResolveImage(ref string) ([]byte, error) {
	return s.images.Get(ref)
}

// SweepOrphanImages removes managed image blobs no receipt references
// and returns the number released
func (s *Service) SweepOrphanImages() (int, error) {
	refs, err := s.images.ListRefs()
	if err != nil {
		return 0, fmt.Errorf("listing images: %w", err)
	}

	receipts, err := s.records.Receipts()
	if err != nil {
		return 0, fmt.Errorf("reading receipts: %w", err)
	}
	referenced := make(map[string]bool, len(receipts))
	for _, receipt := range receipts {
		if s.images.IsManaged(receipt.ImageURI) {
			referenced[receipt.ImageURI] = true
		}
	}

	removed := 0
	for _, ref := range refs {
		if referenced[ref] {
			continue
		}
		if err := s.images.Delete(ref); err != nil {
			slog.Warn("Failed to delete orphan image", "ref", ref, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// ClearAll removes both collections. Image blobs are left for
// SweepOrphanImages to reclaim.
func (s *Service) ClearAll() error {
	if err := s.records.ClearAll(); err != nil {
		return fmt.Errorf("clearing data: %w", err)
	}
	return nil
}

// AutoCleanSettings returns the current retention policy
func (s *Service) AutoCleanSettings() AutoCleanSettings {
	return s.settings.AutoClean()
}

// SaveAutoCleanSettings overwrites the retention policy
func (s *Service) SaveAutoCleanSettings(settings AutoCleanSettings) error {
	return s.settings.SaveAutoClean(settings)
}

// CurrencySettings returns the current currency preference
func (s *Service) CurrencySettings() CurrencySettings {
	return s.settings.Currency()
}

// SaveCurrencySettings overwrites the currency preference
func (s *Service) SaveCurrencySettings(settings CurrencySettings) error {
	return s.settings.SaveCurrency(settings)
}
