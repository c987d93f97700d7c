package repository

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
	"github.com/ManuelReschke/FormFox/internal/pkg/pager"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db, newPagerFromEnv(f.db))
	})
	return f.repos
}

// newPagerFromEnv builds the submission pager. An invalid SEARCH_FIELD is
// logged and replaced by the default.
func newPagerFromEnv(db *gorm.DB) *pager.Pager {
	field := env.GetEnv("SEARCH_FIELD", pager.DefaultSearchField)
	pg, err := pager.New(db, pager.WithSearchField(field))
	if err != nil {
		log.Warnf("[Repository] %v, using %q", err, pager.DefaultSearchField)
		pg, _ = pager.New(db)
	}
	return pg
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetFormRepository returns the form repository instance
func (f *Factory) GetFormRepository() FormRepository {
	return f.GetRepositories().Form
}

// GetSubmissionRepository returns the submission repository instance
func (f *Factory) GetSubmissionRepository() SubmissionRepository {
	return f.GetRepositories().Submission
}

// GetIntegrationRepository returns the integration repository instance
func (f *Factory) GetIntegrationRepository() IntegrationRepository {
	return f.GetRepositories().Integration
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
