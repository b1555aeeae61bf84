package docker

import (
	"strconv"
	"time"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// Label keys written onto the services of a generated docker-compose.yml.
// They let `docker ps --filter label=uploadkit.project=<name>` find the
// containers that belong to a generated project.
const (
	// LabelPrefix is the common prefix for all uploadkit labels.
	LabelPrefix = "uploadkit."

	// LabelManagedBy marks containers created from generated compose files.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelProject stores the generated project's name.
	LabelProject = LabelPrefix + "project"

	// LabelAppPort stores the port the project's server listens on.
	LabelAppPort = LabelPrefix + "app-port"

	// LabelCreatedAt stores the RFC3339 generation timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "uploadkit"

// BuildLabels constructs the label map for a generated project.
func BuildLabels(p *model.Project) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   p.Name,
		LabelAppPort:   strconv.Itoa(p.Port),
	}
	if !p.CreatedAt.IsZero() {
		labels[LabelCreatedAt] = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return labels
}
