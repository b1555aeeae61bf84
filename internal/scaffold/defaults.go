package scaffold

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// DefaultsFileName is the generator defaults file looked up in the working
// directory when --config is not given.
const DefaultsFileName = "uploadkit.jsonc"

// Defaults holds generator settings that replace the built-in defaults and
// the interactive prompts' suggestions. Zero values mean "not set".
type Defaults struct {
	// Name is the suggested project name.
	Name string `json:"name,omitempty"`

	// Port is the preferred application port.
	Port int `json:"port,omitempty"`

	// ConnectionString is written to the generated .env.
	ConnectionString string `json:"connectionString,omitempty"`

	// CORSOrigin is the frontend origin allowed by the generated server.
	CORSOrigin string `json:"corsOrigin,omitempty"`

	// Browser is the command used to open the running server.
	Browser string `json:"browser,omitempty"`

	// InstallCmd and RunCmd replace "go mod tidy" and "go run .".
	InstallCmd string `json:"installCmd,omitempty"`
	RunCmd     string `json:"runCmd,omitempty"`

	// WithDB enables the docker-compose Postgres service.
	WithDB bool `json:"withDB,omitempty"`

	// DBPort is the preferred host port of the Postgres service.
	DBPort int `json:"dbPort,omitempty"`
}

// LoadDefaults reads a defaults file, strips JSONC comments and trailing
// commas, and parses the result.
//
// Returns a CLIError with ExitInvalidInput if the file is missing or invalid.
func LoadDefaults(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitInvalidInput,
				fmt.Sprintf("config file not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var d Defaults
	if err := json.Unmarshal(jsonc.ToJSON(data), &d); err != nil {
		return nil, model.WrapCLIError(
			model.ExitInvalidInput,
			fmt.Sprintf("invalid config file %s", path),
			err,
		)
	}

	if err := d.Validate(); err != nil {
		return nil, model.WrapCLIError(
			model.ExitInvalidInput,
			fmt.Sprintf("invalid config file %s", path),
			err,
		)
	}

	return &d, nil
}

// FindDefaults loads DefaultsFileName from dir. A missing file is not an
// error and yields empty Defaults.
func FindDefaults(dir string) (*Defaults, error) {
	path := filepath.Join(dir, DefaultsFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Defaults{}, nil
	}
	return LoadDefaults(path)
}

// Validate checks the fields that have a restricted range.
func (d *Defaults) Validate() error {
	if d.Name != "" {
		if err := model.ValidateProjectName(d.Name); err != nil {
			return err
		}
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("port %d out of range", d.Port)
	}
	if d.DBPort < 0 || d.DBPort > 65535 {
		return fmt.Errorf("dbPort %d out of range", d.DBPort)
	}
	return nil
}
