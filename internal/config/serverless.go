package config

import (
	"os"
	"path/filepath"
	"strings"
)

// lambdaWritableRoot is the only writable directory inside a Lambda sandbox
const lambdaWritableRoot = "/tmp"

// DeploymentMode tells whether the process serves HTTP itself or runs behind API Gateway
type DeploymentMode string

const (
	ModeServer     DeploymentMode = "server"
	ModeServerless DeploymentMode = "serverless"
)

// DetectDeploymentMode inspects the environment set by the Lambda runtime
func DetectDeploymentMode() DeploymentMode {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return ModeServerless
	}
	return ModeServer
}

// AdaptConfigForServerless fits the configuration to a Lambda sandbox:
// the database moves under /tmp, the receipt archive stays in memory and
// migrations run on every cold start since the file does not outlive the sandbox.
func AdaptConfigForServerless(config *Config, lambda bool) *Config {
	if !lambda {
		return config
	}

	if !filepath.IsAbs(config.Database.Path) || !isUnder(config.Database.Path, lambdaWritableRoot) {
		config.Database.Path = filepath.Join(lambdaWritableRoot, filepath.Base(config.Database.Path))
	}
	config.Database.BackupEnabled = false
	config.Database.AutoMigrate = true
	config.Database.MaxOpenConns = 1
	config.Database.MaxIdleConns = 1

	if config.Storage.Type == "local" {
		config.Storage.Type = "memory"
	}
	config.Receipts.ArchiveEnabled = false

	return config
}

func isUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// GetOptimizedConfig loads configuration and adapts it to the detected deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	return AdaptConfigForServerless(config, DetectDeploymentMode() == ModeServerless), nil
}
