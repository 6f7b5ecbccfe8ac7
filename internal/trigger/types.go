package trigger

// DeploymentRequest is the payload handed to the remote deploy script
type DeploymentRequest struct {
	Title    string `validate:"required"`
	ImageURL string `validate:"required"`
}
