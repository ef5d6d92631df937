// Package discovery registers the API with Consul.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/hashicorp/consul/api"
)

// Registration describes this service instance.
type Registration struct {
	Name string
	ID   string
	Host string
	Port int
	Tags []string
}

// Registry registers and deregisters one service instance.
type Registry struct {
	client *api.Client
	reg    Registration
	logger *slog.Logger
}

// NewRegistry creates a Consul-backed registry.
func NewRegistry(addr string, reg Registration, logger *slog.Logger) (*Registry, error) {
	cfg := api.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{client: client, reg: reg, logger: logger}, nil
}

// RegistrationFor derives the instance from the HTTP listen address.
func RegistrationFor(name, listenAddr string) (Registration, error) {
	host, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return Registration{}, fmt.Errorf("parse listen address %q: %w", listenAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Registration{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host, _ = os.Hostname()
	}
	return Registration{
		Name: name,
		ID:   fmt.Sprintf("%s-%s-%d", name, host, port),
		Host: host,
		Port: port,
		Tags: []string{"assessment", "http"},
	}, nil
}

// Register adds the instance with an HTTP health check on /healthz.
func (r *Registry) Register() error {
	err := r.client.Agent().ServiceRegister(&api.AgentServiceRegistration{
		ID:      r.reg.ID,
		Name:    r.reg.Name,
		Address: r.reg.Host,
		Port:    r.reg.Port,
		Tags:    r.reg.Tags,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s/healthz", net.JoinHostPort(r.reg.Host, strconv.Itoa(r.reg.Port))),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		},
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", r.reg.ID, err)
	}
	r.logger.Info("registered with consul", "service", r.reg.Name, "id", r.reg.ID)
	return nil
}

// Deregister removes the instance.
func (r *Registry) Deregister() error {
	if err := r.client.Agent().ServiceDeregister(r.reg.ID); err != nil {
		return fmt.Errorf("deregister %s: %w", r.reg.ID, err)
	}
	r.logger.Info("deregistered from consul", "id", r.reg.ID)
	return nil
}
