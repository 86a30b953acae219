package services

import (
	"log/slog"

	"github.com/classpulse/interaction-service/internal/cache"
	"github.com/classpulse/interaction-service/internal/events"
	"github.com/classpulse/interaction-service/internal/genai"
	"github.com/classpulse/interaction-service/internal/repositories"
	"github.com/classpulse/interaction-service/internal/validator"
)

// ServiceManager aggregates all services for dependency injection.
type ServiceManager interface {
	Activity() ActivityService
	Course() CourseService
	Grouping() GroupingService
	Generation() GenerationService
	Task() TaskService
}

type serviceManager struct {
	activity   ActivityService
	course     CourseService
	grouping   GroupingService
	generation GenerationService
	task       TaskService
}

func NewServiceManager(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	cacheService cache.CacheService,
	oracle genai.Oracle,
	publisher events.EventPublisher,
) ServiceManager {
	return &serviceManager{
		activity:   NewActivityService(repo, logger, v, cacheService, publisher),
		course:     NewCourseService(repo, logger, v),
		grouping:   NewGroupingService(repo, logger, oracle, cacheService, publisher),
		generation: NewGenerationService(repo, logger, v, oracle),
		task:       NewTaskService(repo, logger),
	}
}

func (m *serviceManager) Activity() ActivityService     { return m.activity }
func (m *serviceManager) Course() CourseService         { return m.course }
func (m *serviceManager) Grouping() GroupingService     { return m.grouping }
func (m *serviceManager) Generation() GenerationService { return m.generation }
func (m *serviceManager) Task() TaskService             { return m.task }
