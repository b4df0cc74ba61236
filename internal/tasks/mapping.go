package tasks

import (
	"github.com/cloudwise/docuproc/pkg/query"
	"github.com/cloudwise/docuproc/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "processing_tasks", "t").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("status", "Status").
	Project("attempt", "Attempt").
	Project("last_error", "LastError").
	Project("not_before", "NotBefore").
	Project("lease_expires_at", "LeaseExpiresAt").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

const taskColumns = "id, document_id, status, attempt, last_error, not_before, lease_expires_at, created_at, updated_at"

func scanTask(s repository.Scanner) (Task, error) {
	var t Task

	err := s.Scan(
		&t.ID,
		&t.DocumentID,
		&t.Status,
		&t.Attempt,
		&t.LastError,
		&t.NotBefore,
		&t.LeaseExpiresAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	return t, err
}
