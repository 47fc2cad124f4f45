package devnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// ErrNotFound is returned when no devnet container exists for a ledger.
var ErrNotFound = errors.New("devnet not found")

// Instance describes the Redis container backing one ledger.
type Instance struct {
	Ledger        string
	ContainerID   string
	ContainerName string
	RunID         string
	Port          int
	State         string
}

// Running reports whether the container is up.
func (i *Instance) Running() bool {
	return i.State == "running"
}

// RedisURL returns the URL clients on this host use to reach the ledger.
func (i *Instance) RedisURL() string {
	return RedisURL(i.Port)
}

// Find returns the devnet for ledger, or ErrNotFound.
func Find(ctx context.Context, cli *client.Client, ledger string) (*Instance, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=%s", LabelLedger, ledger)),
			filters.Arg("label", fmt.Sprintf("%s=redis", LabelComponent)),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("%w for ledger '%s'", ErrNotFound, ledger)
	}

	return instanceFromContainer(containers[0])
}

func instanceFromContainer(c types.Container) (*Instance, error) {
	portStr, ok := c.Labels[LabelRedisPort]
	if !ok {
		return nil, fmt.Errorf("Redis port label missing on container %s", c.ID)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis port '%s': %w", portStr, err)
	}

	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return &Instance{
		Ledger:        c.Labels[LabelLedger],
		ContainerID:   c.ID,
		ContainerName: name,
		RunID:         c.Labels[LabelRunID],
		Port:          port,
		State:         c.State,
	}, nil
}

// ResolveRedisURL returns the URL of the running devnet for ledger.
func ResolveRedisURL(ctx context.Context, cli *client.Client, ledger string) (string, error) {
	inst, err := Find(ctx, cli, ledger)
	if err != nil {
		return "", err
	}
	if !inst.Running() {
		return "", fmt.Errorf("devnet for ledger '%s' is not running (container is %s)", ledger, inst.State)
	}
	return inst.RedisURL(), nil
}

// UpOptions configures Up.
type UpOptions struct {
	Ledger string
	Image  string

	// Progress receives one line per completed step. May be nil.
	Progress func(format string, args ...interface{})
}

// Up starts a Redis container for the ledger and returns it.
// A partially created container is removed on failure.
func Up(ctx context.Context, cli *client.Client, opts UpOptions) (*Instance, error) {
	if err := ValidateLedgerName(opts.Ledger); err != nil {
		return nil, err
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string, ...interface{}) {}
	}

	if existing, err := Find(ctx, cli, opts.Ledger); err == nil {
		return existing, fmt.Errorf("devnet for ledger '%s' already exists (container %s is %s)", opts.Ledger, existing.ContainerName, existing.State)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := ensureImage(ctx, cli, opts.Image, progress); err != nil {
		return nil, err
	}

	port, err := FindNextAvailablePort(ctx, cli)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate Redis port: %w", err)
	}
	progress("Allocated Redis port: %d", port)

	runID := GenerateRunID()
	name := RedisContainerName(opts.Ledger)
	labels := BuildLabels(opts.Ledger, runID, "redis")
	labels[LabelRedisPort] = strconv.Itoa(port)

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:  opts.Image,
		Labels: labels,
		ExposedPorts: nat.PortSet{
			"6379/tcp": struct{}{},
		},
	}, &container.HostConfig{
		PortBindings: nat.PortMap{
			"6379/tcp": []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: strconv.Itoa(port),
				},
			},
		},
	}, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}
	progress("Started Redis container: %s (port %d)", name, port)

	return &Instance{
		Ledger:        opts.Ledger,
		ContainerID:   resp.ID,
		ContainerName: name,
		RunID:         runID,
		Port:          port,
		State:         "running",
	}, nil
}

func ensureImage(ctx context.Context, cli *client.Client, image string, progress func(string, ...interface{})) error {
	if _, _, err := cli.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	} else if !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", image, err)
	}

	progress("Pulling %s...", image)
	reader, err := cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to complete image pull %s: %w", image, err)
	}
	return nil
}

// Down stops and removes the ledger's container. Ledger data is discarded.
func Down(ctx context.Context, cli *client.Client, ledger string) (*Instance, error) {
	inst, err := Find(ctx, cli, ledger)
	if err != nil {
		return nil, err
	}

	// 10s graceful timeout
	timeout := 10
	if inst.Running() {
		// Continue on failure; Force removal below handles it
		_ = cli.ContainerStop(ctx, inst.ContainerID, container.StopOptions{Timeout: &timeout})
	}

	if err := cli.ContainerRemove(ctx, inst.ContainerID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return nil, fmt.Errorf("failed to remove %s: %w", inst.ContainerName, err)
	}
	return inst, nil
}
