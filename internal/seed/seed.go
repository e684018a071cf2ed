// Package seed populates a database with a demo caption feed. It is meant for
// development and testing only.
package seed

import (
	"context"
	"errors"
	"fmt"

	"captionboard/internal/models"
	"captionboard/internal/observability"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchSize = 200

// Options configures a seeding run.
type Options struct {
	// Users is the number of generated identities, in addition to one per fixture.
	Users int
	// Captions is the number of generated captions, in addition to the fixtures.
	Captions int
	// MaxLikes caps the likes per caption.
	MaxLikes int
	// MaxDays spreads created_at over this many days back from now.
	MaxDays int
	// Seed makes a run reproducible. Zero seeds from the clock.
	Seed int64
	// Clean removes existing rows first.
	Clean bool
	// SkipFixtures leaves out the hand-written captions.
	SkipFixtures bool
	// FixturesPath overrides the built-in fixtures file.
	FixturesPath string
}

// Summary reports how many rows a run inserted.
type Summary struct {
	Users    int `json:"users"`
	Profiles int `json:"profiles"`
	Captions int `json:"captions"`
	Likes    int `json:"likes"`
}

// Seeder writes demo data through GORM.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder binds a Seeder to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

func (o Options) validate() error {
	if o.Users < 0 || o.Captions < 0 || o.MaxLikes < 0 || o.MaxDays < 0 {
		return errors.New("seed counts must not be negative")
	}
	if o.Captions > 0 && o.Users == 0 {
		return errors.New("generated captions need at least one generated user")
	}
	return nil
}

// Run inserts the demo feed in a single transaction.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var fixtures []Fixture
	if !opts.SkipFixtures {
		var err error
		if fixtures, err = LoadFixtures(opts.FixturesPath); err != nil {
			return nil, err
		}
	}

	f := NewFactory(opts.Seed, opts.MaxDays)

	var (
		users    []*models.User
		profiles []*models.Profile
		captions []*models.Caption
		likes    []*models.Like
	)

	for _, fx := range fixtures {
		u, p := f.BuildUser(fx.Author, fx.Department)
		c, err := f.BuildCaption(p, fx.Text)
		if err != nil {
			return nil, fmt.Errorf("fixture caption: %w", err)
		}
		users, profiles, captions = append(users, u), append(profiles, p), append(captions, c)
	}

	generated := make([]*models.Profile, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, p := f.BuildUser("", "")
		users, profiles = append(users, u), append(profiles, p)
		generated = append(generated, p)
	}
	for i := 0; i < opts.Captions; i++ {
		c, err := f.BuildCaption(generated[i%len(generated)], "")
		if err != nil {
			return nil, fmt.Errorf("generated caption: %w", err)
		}
		captions = append(captions, c)
	}

	for _, c := range captions {
		likes = append(likes, f.BuildLikes(c, users, opts.MaxLikes)...)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Clean {
			if err := clean(tx); err != nil {
				return err
			}
		}
		if len(users) > 0 {
			if err := tx.CreateInBatches(users, batchSize).Error; err != nil {
				return fmt.Errorf("insert users: %w", err)
			}
			if err := tx.CreateInBatches(profiles, batchSize).Error; err != nil {
				return fmt.Errorf("insert profiles: %w", err)
			}
		}
		if len(captions) > 0 {
			if err := tx.CreateInBatches(captions, batchSize).Error; err != nil {
				return fmt.Errorf("insert captions: %w", err)
			}
		}
		if len(likes) > 0 {
			if err := tx.CreateInBatches(likes, batchSize).Error; err != nil {
				return fmt.Errorf("insert likes: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sum := &Summary{Users: len(users), Profiles: len(profiles), Captions: len(captions), Likes: len(likes)}
	observability.GlobalLogger.Info("seeded demo feed",
		zap.Int("users", sum.Users),
		zap.Int("captions", sum.Captions),
		zap.Int("likes", sum.Likes),
		zap.Bool("clean", opts.Clean),
	)
	return sum, nil
}

// Clean removes every caption, like, profile and identity.
func (s *Seeder) Clean(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(clean)
}

// clean deletes dependents before the rows they reference.
func clean(tx *gorm.DB) error {
	for _, model := range []interface{}{&models.Like{}, &models.Caption{}, &models.Profile{}, &models.User{}} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clean %T: %w", model, err)
		}
	}
	return nil
}
