package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RobokopU24/babel-filter/internal/codec"
	"github.com/RobokopU24/babel-filter/internal/errhandling"
	"github.com/RobokopU24/babel-filter/internal/modules/filter"
	"github.com/RobokopU24/babel-filter/internal/modules/input"
	"github.com/RobokopU24/babel-filter/internal/modules/output"
	"github.com/RobokopU24/babel-filter/internal/pathutil"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "BABEL_FILTER"

// Config holds the settings of one run. Keys match the job file schema.
type Config struct {
	BabelDirectory  string `mapstructure:"babel_directory"`
	FilterFile      string `mapstructure:"filter_file"`
	OutputDirectory string `mapstructure:"output_directory"`

	ExcludeCategory []string `mapstructure:"exclude_category"`

	DataIdentifierKey   string `mapstructure:"data_identifier_key"`
	FilterIdentifierKey string `mapstructure:"filter_identifier_key"`
	FilterCategoryKey   string `mapstructure:"filter_category_key"`
	FilterNameKey       string `mapstructure:"filter_name_key"`

	OutputFormat    string `mapstructure:"output_format"`
	ReadBufferSize  int    `mapstructure:"read_buffer_size"`
	WriteBufferSize int    `mapstructure:"write_buffer_size"`

	ResidualFileName string `mapstructure:"residual_file_name"`
	ReportFile       string `mapstructure:"report_file"`
}

// Defaults returns a Config with every optional setting at its default.
func Defaults() Config {
	return Config{
		DataIdentifierKey:   filter.DefaultDataIdentifierKey,
		FilterIdentifierKey: filter.DefaultFilterIdentifierKey,
		FilterCategoryKey:   filter.DefaultFilterCategoryKey,
		FilterNameKey:       filter.DefaultFilterNameKey,
		OutputFormat:        string(codec.PolicyMatchInput),
		ReadBufferSize:      input.DefaultBufferSize,
		WriteBufferSize:     output.DefaultBufferSize,
		ResidualFileName:    filter.DefaultResidualFileName,
	}
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"exclude-category":         "exclude_category",
	"babel-identifier":         "data_identifier_key",
	"filter-file-identifier":   "filter_identifier_key",
	"filter-file-category-key": "filter_category_key",
	"filter-file-name-key":     "filter_name_key",
	"output-format":            "output_format",
	"read-buf-capacity":        "read_buffer_size",
	"write-buf-capacity":       "write_buffer_size",
	"residual-file-name":       "residual_file_name",
	"report-file":              "report_file",
}

// LoadOptions selects the sources merged by Load.
type LoadOptions struct {
	// JobFile is an optional JSON, YAML or TOML job file.
	JobFile string
	// EnvFile is an optional dotenv file; a missing file is ignored.
	EnvFile string
	// Flags are bound through FlagKeys. Only flags set by the user take effect.
	Flags *pflag.FlagSet
	// Overrides take precedence over every other source.
	Overrides map[string]any
}

// JobFileError reports a job file that failed to parse or validate.
type JobFileError struct {
	Result *Result
}

// Error implements the error interface.
func (e *JobFileError) Error() string {
	return fmt.Sprintf("invalid job file %s: %s", e.Result.FilePath, e.details())
}

// Unwrap classifies the failure: a file that cannot be parsed is a parse
// error, a schema violation is a configuration error.
func (e *JobFileError) Unwrap() error {
	if e.IsParseError() {
		return errhandling.NewParseError(e.Result.FilePath, e.details(), nil)
	}
	return errhandling.NewConfigurationError(e.details(), nil)
}

func (e *JobFileError) details() string {
	errs := e.Result.AllErrors()
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// IsParseError reports whether the job file could not be parsed at all.
func (e *JobFileError) IsParseError() bool {
	return len(e.Result.ParseErrors) > 0
}

// Load merges settings with precedence overrides > flags > environment >
// job file > defaults. The result is not validated.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errhandling.NewConfigurationError(fmt.Sprintf("loading env file %s", opts.EnvFile), err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if opts.JobFile != "" {
		result := ParseConfig(opts.JobFile)
		if !result.IsValid() {
			return nil, &JobFileError{Result: result}
		}
		if err := v.MergeConfigMap(result.Data); err != nil {
			return nil, errhandling.NewConfigurationError("merging job file", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errhandling.NewConfigurationError("binding flag --"+name, err)
			}
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errhandling.NewConfigurationError("decoding settings", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("babel_directory", "")
	v.SetDefault("filter_file", "")
	v.SetDefault("output_directory", "")
	v.SetDefault("exclude_category", []string{})
	v.SetDefault("data_identifier_key", d.DataIdentifierKey)
	v.SetDefault("filter_identifier_key", d.FilterIdentifierKey)
	v.SetDefault("filter_category_key", d.FilterCategoryKey)
	v.SetDefault("filter_name_key", d.FilterNameKey)
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("read_buffer_size", d.ReadBufferSize)
	v.SetDefault("write_buffer_size", d.WriteBufferSize)
	v.SetDefault("residual_file_name", d.ResidualFileName)
	v.SetDefault("report_file", "")
}

// Policy returns the parsed output format policy.
func (c *Config) Policy() codec.Policy {
	p, err := codec.ParsePolicy(c.OutputFormat)
	if err != nil {
		return codec.PolicyMatchInput
	}
	return p
}

// Validate checks option values without touching the filesystem.
func (c *Config) Validate() error {
	var problems []string

	for _, req := range []struct{ name, value string }{
		{"babel_directory", c.BabelDirectory},
		{"filter_file", c.FilterFile},
		{"output_directory", c.OutputDirectory},
	} {
		if req.value == "" {
			problems = append(problems, req.name+" is required")
		}
	}
	for _, key := range []struct{ name, value string }{
		{"data_identifier_key", c.DataIdentifierKey},
		{"filter_identifier_key", c.FilterIdentifierKey},
		{"filter_category_key", c.FilterCategoryKey},
		{"filter_name_key", c.FilterNameKey},
	} {
		if key.value == "" {
			problems = append(problems, key.name+" must not be empty")
		}
	}
	if _, err := codec.ParsePolicy(c.OutputFormat); err != nil {
		problems = append(problems, err.Error())
	}
	if c.ReadBufferSize < 0 {
		problems = append(problems, "read_buffer_size must not be negative")
	}
	if c.WriteBufferSize < 0 {
		problems = append(problems, "write_buffer_size must not be negative")
	}
	if err := pathutil.ValidateFileName(c.ResidualFileName); err != nil {
		problems = append(problems, "residual_file_name: "+err.Error())
	}

	if len(problems) > 0 {
		return errhandling.NewConfigurationError(strings.Join(problems, "; "), nil)
	}
	return nil
}

// CheckPaths verifies that the babel directory and output directory exist and
// are distinct directories and that the filter file is a regular file.
func (c *Config) CheckPaths() error {
	if err := pathutil.RequireDir("babel directory", c.BabelDirectory); err != nil {
		return err
	}
	if err := pathutil.RequireFile("filter file", c.FilterFile); err != nil {
		return err
	}
	if err := pathutil.RequireDir("output directory", c.OutputDirectory); err != nil {
		return err
	}
	return pathutil.RequireDistinct("babel directory", c.BabelDirectory, "output directory", c.OutputDirectory)
}
