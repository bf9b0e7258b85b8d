package coursectrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CourseRecord is the relational side of the catalog: one row per ingested
// course, used for statistics and the course listing. Name resolution runs
// against the vector catalog, not against these rows.
type CourseRecord struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"uniqueIndex;not null" json:"title"`
	Instructor  string    `json:"instructor"`
	Link        string    `json:"link"`
	LessonCount int       `json:"lesson_count"`
	LessonsJSON string    `gorm:"column:lessons_json" json:"lessons_json"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CourseService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewCourseService(db *gorm.DB) (*CourseService, error) {
	// Initialize snowflake node
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &CourseService{
		db:        db,
		snowflake: node,
	}, nil
}

// Upsert replaces any record with the same title, matching the wholesale
// replacement semantics of the vector index.
func (s *CourseService) Upsert(ctx context.Context, record *CourseRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("title = ?", record.Title).Delete(&CourseRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete existing course record: %v", err)
		}

		record.ID = s.snowflake.Generate().Int64()
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create course record: %v", err)
		}
		return nil
	})
}

func (s *CourseService) GetByTitle(ctx context.Context, title string) (*CourseRecord, error) {
	var record CourseRecord
	result := s.db.WithContext(ctx).Where("title = ?", title).First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course record: %v", result.Error)
	}
	return &record, nil
}

// ListTitles returns every known course title in alphabetical order.
func (s *CourseService) ListTitles(ctx context.Context) ([]string, error) {
	var titles []string
	result := s.db.WithContext(ctx).
		Model(&CourseRecord{}).
		Order("title ASC").
		Pluck("title", &titles)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list course titles: %v", result.Error)
	}
	return titles, nil
}

func (s *CourseService) Count(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&CourseRecord{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count courses: %v", result.Error)
	}
	return count, nil
}
