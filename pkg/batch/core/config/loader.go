package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

const moduleName = "config"

// LoadConfig builds the configuration in layers: defaults, the embedded
// application.yaml, an optional operator overlay file, then environment
// variables named after the yaml path (e.g. FLOW_API_TOKEN).
//
// Parameters:
//
//	envFilePath: The .env file to load first. A missing file is not an error.
//	embeddedConfig: The embedded YAML document.
//	overlayPath: An optional YAML file merged over the embedded document.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig, overlayPath string) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig, overlayPath, NewOsEnvironmentExpander())
}

func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig, overlayPath string, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	}

	cfg := NewConfig()

	embedded, err := parseDocument(embeddedConfig, expander)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "failed to parse embedded config", err)
	}
	mergeConfig(cfg, embedded)

	if overlayPath != "" {
		raw, err := os.ReadFile(overlayPath)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, fmt.Sprintf("failed to read config file %s", overlayPath), err)
		}
		overlay, err := parseDocument(raw, expander)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, fmt.Sprintf("failed to parse config file %s", overlayPath), err)
		}
		mergeConfig(cfg, overlay)
		logger.Debugf("Merged config overlay from %s", overlayPath)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "failed to load config from environment variables", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "invalid configuration", err)
	}
	return cfg, nil
}

func parseDocument(raw []byte, expander EnvironmentExpander) (*Config, error) {
	expanded, err := expander.Expand(raw)
	if err != nil {
		return nil, err
	}
	var doc Config
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// mergeConfig copies every non-zero value of source into dest.
func mergeConfig(dest, source *Config) {
	d, s := &dest.Flow, &source.Flow

	if s.System.Logging.Level != "" {
		d.System.Logging.Level = s.System.Logging.Level
	}

	if s.API.BaseURL != "" {
		d.API.BaseURL = s.API.BaseURL
	}
	if s.API.AppURL != "" {
		d.API.AppURL = s.API.AppURL
	}
	if s.API.ExecutionURLTemplate != "" {
		d.API.ExecutionURLTemplate = s.API.ExecutionURLTemplate
	}
	if s.API.RequestTimeoutSeconds != 0 {
		d.API.RequestTimeoutSeconds = s.API.RequestTimeoutSeconds
	}
	if s.API.SubmitTimeoutSeconds != 0 {
		d.API.SubmitTimeoutSeconds = s.API.SubmitTimeoutSeconds
	}
	if s.API.PageSize != 0 {
		d.API.PageSize = s.API.PageSize
	}
	if s.API.Token != "" {
		d.API.Token = s.API.Token
	}
	if s.API.Username != "" {
		d.API.Username = s.API.Username
	}

	if s.Run.Pipeline != "" {
		d.Run.Pipeline = s.Run.Pipeline
	}
	if s.Run.NumChunks != 0 {
		d.Run.NumChunks = s.Run.NumChunks
	}
	if s.Run.DisplayCap != 0 {
		d.Run.DisplayCap = s.Run.DisplayCap
	}

	if s.Telemetry.ServiceName != "" {
		d.Telemetry.ServiceName = s.Telemetry.ServiceName
	}
	if s.Telemetry.MetricsFile != "" {
		d.Telemetry.MetricsFile = s.Telemetry.MetricsFile
	}
	if s.Telemetry.OTLPEndpoint != "" {
		d.Telemetry.OTLPEndpoint = s.Telemetry.OTLPEndpoint
	}
	if s.Telemetry.OTLPProtocol != "" {
		d.Telemetry.OTLPProtocol = s.Telemetry.OTLPProtocol
	}
	if s.Telemetry.OTLPInsecure {
		d.Telemetry.OTLPInsecure = true
	}

	if s.Report.URI != "" {
		d.Report.URI = s.Report.URI
	}
	if s.Report.CredentialsFile != "" {
		d.Report.CredentialsFile = s.Report.CredentialsFile
	}
	if len(s.Report.Options) > 0 {
		if d.Report.Options == nil {
			d.Report.Options = make(map[string]interface{}, len(s.Report.Options))
		}
		for k, v := range s.Report.Options {
			d.Report.Options[k] = v
		}
	}

	if d.Pipelines == nil {
		d.Pipelines = make(map[string]PipelineConfig, len(s.Pipelines))
	}
	for key, src := range s.Pipelines {
		dst := d.Pipelines[key]
		mergePipelineConfig(&dst, &src)
		d.Pipelines[key] = dst
	}
}

// mergePipelineConfig merges a pipeline definition field by field.
// Params are merged per key; a non-empty reference file list replaces the old one.
func mergePipelineConfig(dest, source *PipelineConfig) {
	if source.Name != "" {
		dest.Name = source.Name
	}
	if source.PipelineID != "" {
		dest.PipelineID = source.PipelineID
	}
	if source.Version != "" {
		dest.Version = source.Version
	}
	if source.VersionID != "" {
		dest.VersionID = source.VersionID
	}
	if source.NextflowVersion != "" {
		dest.NextflowVersion = source.NextflowVersion
	}
	if source.PrepExecutionID != "" {
		dest.PrepExecutionID = source.PrepExecutionID
	}
	if source.FilterMode != "" {
		dest.FilterMode = source.FilterMode
	}
	if source.Paired != "" {
		dest.Paired = source.Paired
	}
	if len(source.Params) > 0 {
		if dest.Params == nil {
			dest.Params = make(map[string]string, len(source.Params))
		}
		for k, v := range source.Params {
			dest.Params[k] = v
		}
	}
	if len(source.ReferenceFiles) > 0 {
		dest.ReferenceFiles = append([]ReferenceFile(nil), source.ReferenceFiles...)
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to determine the environment variable name.
//
// Parameters:
//
//	val: The reflect.Value of the struct to populate.
//	prefix: The prefix for environment variable names (e.g., "FLOW_API_").
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Struct {
				if err := loadMapOfStructsFromEnv(field, envVarName+"_"); err != nil {
					return err
				}
			}
			continue
		case reflect.Slice:
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv sets fields of existing or new map entries from
// variables shaped PREFIX_<KEY>_<FIELD>, e.g. FLOW_PIPELINES_CLIP_VERSION_ID.
// Keys containing underscores or dashes cannot be addressed this way.
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 {
			continue
		}
		mapKey := reflect.ValueOf(strings.ToLower(keyAndField[0]))

		elem := reflect.New(elemType).Elem()
		if existing := mapField.MapIndex(mapKey); existing.IsValid() {
			elem.Set(existing)
		}
		if err := setStructFieldFromEnv(elem, keyAndField[1], parts[1]); err != nil {
			return err
		}
		mapField.SetMapIndex(mapKey, elem)
	}
	return nil
}

// setStructFieldFromEnv sets the field whose yaml tag matches fieldName (case-insensitively).
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		yamlTag := typ.Field(i).Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		if strings.EqualFold(yamlTag, fieldName) {
			return setField(structVal.Field(i), value)
		}
	}
	return nil
}

// setField sets a scalar field from its string form. Other kinds are left untouched.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	}
	return nil
}
