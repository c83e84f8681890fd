package service

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

const (
	ExportApp     = "Task Manager"
	ExportVersion = "1.0.0"
)

// ExportDocument is the JSON backup handed to the user.
type ExportDocument struct {
	App        string             `json:"app"`
	Version    string             `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Users      []model.User       `json:"users"`
	Tasks      []model.TaskRecord `json:"tasks"`
}

type ExportService struct {
	tasks *repository.TaskRepository
	users *repository.UserRepository
}

func NewExportService(tasks *repository.TaskRepository, users *repository.UserRepository) *ExportService {
	return &ExportService{tasks: tasks, users: users}
}

// Build collects the document. An empty userID exports everything; otherwise only
// that user's profile and the tasks visible to them.
func (s *ExportService) Build(userID string, now time.Time) ExportDocument {
	doc := ExportDocument{
		App:        ExportApp,
		Version:    ExportVersion,
		ExportedAt: now.UTC(),
		Users:      []model.User{},
		Tasks:      []model.TaskRecord{},
	}

	if userID == "" {
		doc.Users = s.users.FindAll()
		doc.Tasks = s.tasks.Records()
		return doc
	}

	if user, ok := s.users.FindByID(userID); ok {
		doc.Users = append(doc.Users, *user)
	}
	for _, task := range s.tasks.Filter(repository.TaskFilter{VisibleTo: userID}) {
		doc.Tasks = append(doc.Tasks, task.Record())
	}
	return doc
}

// Export renders the document as indented JSON along with a dated file name.
func (s *ExportService) Export(userID string, now time.Time) (string, []byte, error) {
	payload, err := sonic.ConfigStd.MarshalIndent(s.Build(userID, now), "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encode export: %w", err)
	}
	return fmt.Sprintf("task-manager-export-%s.json", now.Format(dateLayout)), payload, nil
}
