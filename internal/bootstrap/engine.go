package bootstrap

import (
	"log/slog"

	"github.com/kirillkom/document-triage/internal/config"
	"github.com/kirillkom/document-triage/internal/core/rules"
	"github.com/kirillkom/document-triage/internal/core/usecase"
)

// EngineSources records which files the rules and filetypes came from.
type EngineSources struct {
	Rules     string
	Filetypes string
}

// LoadEngine compiles the rule and filetype configuration. Any error here is
// a configuration error and should stop the process.
func LoadEngine(cfg config.Config) (usecase.Engine, EngineSources, error) {
	ruleSet, rulesOrigin, err := rules.LoadRules(rules.DefaultSource(cfg.ClassifierConfigDir, workDir()))
	if err != nil {
		return usecase.Engine{}, EngineSources{}, err
	}
	filetypes, filetypesOrigin, err := rules.LoadFiletypes(cfg.FiletypesPath)
	if err != nil {
		return usecase.Engine{}, EngineSources{}, err
	}

	slog.Info("classifier_config_loaded",
		"rules", len(ruleSet),
		"rules_source", rulesOrigin,
		"filetypes", len(filetypes),
		"filetypes_source", filetypesOrigin,
		"min_confidence", cfg.MinConfidence,
	)
	return usecase.Engine{
		Rules:         ruleSet,
		Filetypes:     filetypes,
		MinConfidence: cfg.MinConfidence,
	}, EngineSources{Rules: rulesOrigin, Filetypes: filetypesOrigin}, nil
}
