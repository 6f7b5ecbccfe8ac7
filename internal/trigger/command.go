package trigger

import (
	"fmt"
	"strings"

	"deploytrigger/internal/templates"

	"github.com/aymerick/raymond"
)

const (
	DefaultScriptPath = "/root/reddit_post_automation/bash/deploy.sh"
	DefaultLogPath    = "/tmp/deploy.log"
)

// CommandBuilder renders the nohup command line for a deployment
type CommandBuilder struct {
	tpl        *raymond.Template
	scriptPath string
	logPath    string
}

func NewCommandBuilder(scriptPath string, logPath string) (*CommandBuilder, error) {
	if scriptPath == "" {
		scriptPath = DefaultScriptPath
	}

	if logPath == "" {
		logPath = DefaultLogPath
	}

	commandTemplate, err := templates.Scripts.ReadFile(templates.DeployCommandTemplatePath)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToParseTemplate, err)
	}

	tpl, err := raymond.Parse(string(commandTemplate))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToParseTemplate, err)
	}

	return &CommandBuilder{
		tpl:        tpl,
		scriptPath: scriptPath,
		logPath:    logPath,
	}, nil
}

// Build returns the command, with the image URL as the first script argument
// and the title as the second.
func (b *CommandBuilder) Build(request DeploymentRequest) (string, error) {
	command, err := b.tpl.Exec(map[string]string{
		"scriptPath": b.scriptPath,
		"logPath":    b.logPath,
		"imageUrl":   EscapeSingleQuotes(request.ImageURL),
		"title":      EscapeSingleQuotes(request.Title),
	})

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToBuildCommand, err)
	}

	return strings.TrimRight(command, "\r\n"), nil
}
