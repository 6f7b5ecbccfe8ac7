package templates

import "embed"

// DeployCommandTemplatePath is the remote command launched on the deploy host
const DeployCommandTemplatePath = "scripts/trigger/deploy.hbs"

//go:embed scripts
var Scripts embed.FS
