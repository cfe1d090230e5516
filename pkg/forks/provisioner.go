package forks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/common"
)

// Provisioner creates and destroys database forks on an external service.
type Provisioner interface {
	Fork(ctx context.Context, parentServiceID string) (string, error)
	Describe(ctx context.Context, serviceID string) (common.ForkConnection, error)
	Delete(ctx context.Context, serviceID string) error
}

// Provisioning calls run against a cloud control plane and are slow by
// nature.
const (
	forkTimeout     = 5 * time.Minute
	describeTimeout = 30 * time.Second
	deleteTimeout   = 2 * time.Minute
)

// CLIProvisioner shells out to the database vendor's CLI, which reports
// results as JSON on stdout.
type CLIProvisioner struct {
	path   string
	logger *zap.Logger
}

func NewCLIProvisioner(path string, logger *zap.Logger) *CLIProvisioner {
	return &CLIProvisioner{path: path, logger: logger}
}

func (p *CLIProvisioner) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %v: %w: %s", p.path, args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (p *CLIProvisioner) Fork(ctx context.Context, parentServiceID string) (string, error) {
	out, err := p.run(ctx, forkTimeout, "service", "fork", parentServiceID)
	if err != nil {
		return "", err
	}

	var created struct {
		ServiceID string `json:"service_id"`
	}
	if err := json.Unmarshal(out, &created); err != nil {
		return "", fmt.Errorf("parse fork output: %w", err)
	}
	if created.ServiceID == "" {
		return "", fmt.Errorf("fork output missing service_id")
	}

	p.logger.Info("fork provisioned", zap.String("service_id", created.ServiceID))
	return created.ServiceID, nil
}

func (p *CLIProvisioner) Describe(ctx context.Context, serviceID string) (common.ForkConnection, error) {
	out, err := p.run(ctx, describeTimeout, "service", "show", serviceID)
	if err != nil {
		return common.ForkConnection{}, err
	}

	conn := common.ForkConnection{
		ServiceID: serviceID,
		Port:      5432,
		Database:  "tsdb",
		Username:  "tsdbadmin",
	}
	if err := json.Unmarshal(out, &conn); err != nil {
		return common.ForkConnection{}, fmt.Errorf("parse service info: %w", err)
	}
	conn.ServiceID = serviceID
	return conn, nil
}

func (p *CLIProvisioner) Delete(ctx context.Context, serviceID string) error {
	if _, err := p.run(ctx, deleteTimeout, "service", "delete", serviceID, "--force"); err != nil {
		return err
	}
	p.logger.Info("fork deleted", zap.String("service_id", serviceID))
	return nil
}
