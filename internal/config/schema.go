package config

// Config holds sheetmark configuration.
// Stored at: ~/.sheetmark/config.yaml
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Grader  GraderConfig  `mapstructure:"grader" yaml:"grader"`
	Library LibraryConfig `mapstructure:"library" yaml:"library"`
	Uploads UploadsConfig `mapstructure:"uploads" yaml:"uploads"`
}

// ServerConfig holds the editor HTTP server configuration.
type ServerConfig struct {
	// Host is the interface to bind (default: 127.0.0.1)
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the port to listen on (default: 4477)
	Port string `mapstructure:"port" yaml:"port"`
}

// GraderConfig holds grading service configuration. When Managed is
// true the server runs the service in a local Docker container;
// otherwise BaseURL must point at a running instance.
type GraderConfig struct {
	// BaseURL of the grading service (supports ${ENV_VAR} syntax)
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Managed runs the service in a local Docker container
	Managed bool `mapstructure:"managed" yaml:"managed"`
	// ContainerName is the Docker container name (default: sheetmark-grader)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sheetmark/grader:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 8080)
	Port string `mapstructure:"port" yaml:"port"`
}

// LibraryConfig holds the saved-rubric library configuration.
type LibraryConfig struct {
	// Dir overrides the library directory (default: ~/.sheetmark/library)
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// UploadsConfig bounds uploaded workbook sizes.
type UploadsConfig struct {
	// MaxFileMB is the per-file upload limit in megabytes (default: 50)
	MaxFileMB int64 `mapstructure:"max_file_mb" yaml:"max_file_mb"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "4477",
		},
		Grader: GraderConfig{
			BaseURL:       "http://localhost:8080",
			Managed:       false,
			ContainerName: "sheetmark-grader",
			Image:         "sheetmark/grader:latest",
			Port:          "8080",
		},
		Library: LibraryConfig{},
		Uploads: UploadsConfig{
			MaxFileMB: 50,
		},
	}
}

// GraderBaseURL returns the grading service base URL with ${ENV_VAR}
// references resolved.
func (c *Config) GraderBaseURL() string {
	return ResolveEnvVars(c.Grader.BaseURL)
}

// MaxUploadBytes returns the per-file upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.Uploads.MaxFileMB
	if mb <= 0 {
		mb = 50
	}
	return mb << 20
}
