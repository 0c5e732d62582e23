package provision

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// composeVersion matches the descriptor format the tool has always written.
const composeVersion = "3.7"

type composeFile struct {
	Version  string                    `yaml:"version"`
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image       string            `yaml:"image"`
	Command     []string          `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports"`
	Volumes     []string          `yaml:"volumes"`
}

// Descriptor renders the services as a docker-compose document.
func Descriptor(services []Service) ([]byte, error) {
	file := composeFile{
		Version:  composeVersion,
		Services: make(map[string]composeService, len(services)),
	}

	for _, svc := range services {
		ports := make([]string, 0, len(svc.Ports))
		for _, p := range svc.Ports {
			ports = append(ports, strconv.Itoa(p.HostPort)+":"+strconv.Itoa(p.ContainerPort))
		}

		file.Services[svc.Name] = composeService{
			Image:       svc.Image,
			Command:     svc.Command,
			Environment: svc.Env,
			Ports:       ports,
			Volumes:     []string{svc.DataDir + ":" + svc.MountTarget},
		}
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}

	return data, nil
}

// WriteDescriptor writes the compose descriptor for the configured services.
func (p *provisioner) WriteDescriptor(path string) error {
	data, err := Descriptor(p.services)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing descriptor %s: %w", path, err)
	}

	p.log.WithField("path", path).Info("Wrote compose descriptor")

	return nil
}
