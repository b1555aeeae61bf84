package scaffold

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

const (
	// ComposeFileName is the compose file written into the project.
	ComposeFileName = "docker-compose.yml"

	// DatabaseService is the compose service (and allocation) name of Postgres.
	DatabaseService = "db"

	// DefaultDBPort is the preferred host port of the database service.
	DefaultDBPort = 5432

	// DBPortVariable is the compose variable holding the database host
	// port. The allocated port is written as its default.
	DBPortVariable = "UPLOADKIT_DB_PORT"

	postgresImage         = "postgres:16-alpine"
	postgresContainerPort = 5432
	postgresUser          = "postgres"
	postgresPassword      = "postgres"
	postgresVolume        = "pgdata"
)

// composeFile is the generated docker-compose.yml.
type composeFile struct {
	// Name sets COMPOSE_PROJECT_NAME so containers and volumes of different
	// generated projects do not collide.
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
	Volumes  map[string]struct{}       `yaml:"volumes,omitempty"`
}

type composeService struct {
	Image       string            `yaml:"image"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

var composeNameInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)

// ComposeProjectName lowercases name and drops characters compose rejects
// in project names.
func ComposeProjectName(name string) string {
	n := composeNameInvalid.ReplaceAllString(strings.ToLower(name), "")
	n = strings.TrimLeft(n, "_-")
	if n == "" {
		return "uploadkit"
	}
	return n
}

// DatabaseURL returns the connection string for the compose database.
func DatabaseURL(projectName string, hostPort int) string {
	return fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		postgresUser, postgresPassword, hostPort, projectName)
}

// ComposeEnv returns the variables compose needs to start the database on
// its allocated host port.
func ComposeEnv(db model.PortAllocation) map[string]string {
	return map[string]string{DBPortVariable: strconv.Itoa(db.HostPort)}
}

// GenerateCompose creates a docker-compose.yml with a Postgres service bound
// to the allocated host port. labels are applied to the service.
func GenerateCompose(projectName string, db model.PortAllocation, labels map[string]string) ([]byte, error) {
	if err := db.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database port allocation: %w", err)
	}

	cf := composeFile{
		Name: ComposeProjectName(projectName),
		Services: map[string]composeService{
			DatabaseService: {
				Image: postgresImage,
				Environment: map[string]string{
					"POSTGRES_USER":     postgresUser,
					"POSTGRES_PASSWORD": postgresPassword,
					"POSTGRES_DB":       projectName,
				},
				Ports:   []string{fmt.Sprintf("${%s:-%d}:%d", DBPortVariable, db.HostPort, postgresContainerPort)},
				Volumes: []string{postgresVolume + ":/var/lib/postgresql/data"},
				Labels:  labels,
			},
		},
		Volumes: map[string]struct{}{postgresVolume: {}},
	}

	out, err := yaml.Marshal(&cf)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize compose YAML: %w", err)
	}

	header := fmt.Sprintf("# Generated by uploadkit for project %q\n", projectName)
	return append([]byte(header), out...), nil
}
