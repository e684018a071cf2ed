package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"captionboard/internal/models"
	"captionboard/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Factory builds demo entities without persisting them. All randomness comes
// from a single seed so a run can be reproduced.
type Factory struct {
	faker   *gofakeit.Faker
	rng     *rand.Rand
	maxDays int
	now     time.Time
}

// NewFactory creates a Factory. A zero seed picks one from the clock.
func NewFactory(seed int64, maxDays int) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 14
	}
	return &Factory{
		faker:   gofakeit.New(seed),
		rng:     rand.New(rand.NewSource(seed)),
		maxDays: maxDays,
		now:     time.Now().UTC(),
	}
}

func (f *Factory) id() uuid.UUID {
	id, err := uuid.NewRandomFromReader(f.rng)
	if err != nil {
		// math/rand never fails to read
		panic(err)
	}
	return id
}

func (f *Factory) department() models.Department {
	all := models.Departments()
	return all[f.rng.Intn(len(all))].Code
}

func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.rng.Intn(f.maxDays*24*60)) * time.Minute
	return f.now.Add(-back)
}

// BuildUser returns an identity with a matching profile. An empty name or
// department is filled in by the faker.
func (f *Factory) BuildUser(fullName string, dept models.Department) (*models.User, *models.Profile) {
	if fullName == "" {
		fullName = f.faker.Name()
	}
	if dept == "" {
		dept = f.department()
	}

	id := f.id()
	email := strings.ToLower(fmt.Sprintf("%s.%s@example.edu",
		strings.ReplaceAll(fullName, " ", "."), id.String()[:4]))
	created := f.createdAt()

	user := &models.User{ID: id, Email: email, CreatedAt: created, UpdatedAt: created}
	profile := &models.Profile{
		ID:         id,
		Email:      email,
		FullName:   fullName,
		Department: dept,
		Year:       f.faker.Number(models.MinYear, models.MaxYear),
		StudentID:  fmt.Sprintf("%s%02d-%03d", dept, 20+f.rng.Intn(5), f.rng.Intn(1000)),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	return user, profile
}

// BuildCaption returns a caption authored by profile. An empty text is
// replaced by a faker sentence.
func (f *Factory) BuildCaption(profile *models.Profile, text string) (*models.Caption, error) {
	if text == "" {
		text = f.faker.Sentence(6 + f.rng.Intn(10))
	}
	text, err := validation.CaptionText(text)
	if err != nil {
		return nil, err
	}

	owner := profile.ID
	created := f.createdAt()
	if created.Before(profile.CreatedAt) {
		created = profile.CreatedAt
	}
	return &models.Caption{
		ID:          f.id(),
		CaptionText: text,
		AuthorName:  profile.FullName,
		Department:  profile.Department,
		UserID:      &owner,
		CreatedAt:   created,
		UpdatedAt:   created,
	}, nil
}

// BuildLikes picks up to max distinct likers for caption.
func (f *Factory) BuildLikes(caption *models.Caption, users []*models.User, max int) []*models.Like {
	if max > len(users) {
		max = len(users)
	}
	if max <= 0 {
		return nil
	}

	n := f.rng.Intn(max + 1)
	likes := make([]*models.Like, 0, n)
	for _, i := range f.rng.Perm(len(users))[:n] {
		likes = append(likes, &models.Like{
			ID:        f.id(),
			CaptionID: caption.ID,
			UserID:    users[i].ID,
			CreatedAt: caption.CreatedAt.Add(time.Duration(f.rng.Intn(3600)) * time.Second),
		})
	}
	return likes
}
