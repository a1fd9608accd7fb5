package instances

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	pathutils "github.com/temirov/mdk/internal/utils/path"
)

const (
	// MasterVersion identifies the development branch instance.
	MasterVersion = "master"

	masterBranchConstant                       = "master"
	stableBranchTemplateConstant               = "MOODLE_%s_STABLE"
	instanceCheckoutDirectoryConstant          = "moodle"
	duplicateInstanceTemplateConstant          = "instance %s registered twice"
	instanceVersionMissingTemplateConstant     = "instance %s has no version"
	instancePathMissingTemplateConstant        = "instance %s has no path and no storage directory is configured"
	instanceIdentityMissingMessageConstant     = "instance needs a name or a version"
	invalidInstanceMessageConstant             = "invalid instance"
	instanceConfigurationErrorTemplateConstant = "invalid instance configuration: %w"
)

// ErrInvalidInstance reports an unusable instance entry.
var ErrInvalidInstance = errors.New(invalidInstanceMessageConstant)

// Instance is one local checkout of a release branch.
type Instance struct {
	Name         string
	Path         string
	Version      string
	StableBranch string
	Integration  bool
}

// Registry resolves versions to registered instances. It is built once and never mutated.
type Registry struct {
	configuration Configuration
	instances     []Instance
	byName        map[string]int
}

// NewRegistry validates the configured instances and fills in derived names, paths and stable branches.
func NewRegistry(configuration Configuration) (*Registry, error) {
	pathResolver := pathutils.NewResolver("")
	sanitized := configuration.sanitize()
	sanitized.Storage = pathResolver.Resolve(sanitized.Storage)
	registry := &Registry{configuration: sanitized, byName: map[string]int{}}

	for _, entry := range sanitized.Instances {
		entry.Path = pathResolver.Resolve(entry.Path)
		instance, instanceError := registry.buildInstance(entry)
		if instanceError != nil {
			return nil, fmt.Errorf(instanceConfigurationErrorTemplateConstant, instanceError)
		}
		if _, exists := registry.byName[instance.Name]; exists {
			return nil, fmt.Errorf(instanceConfigurationErrorTemplateConstant, fmt.Errorf("%w: "+duplicateInstanceTemplateConstant, ErrInvalidInstance, instance.Name))
		}
		registry.byName[instance.Name] = len(registry.instances)
		registry.instances = append(registry.instances, instance)
	}
	return registry, nil
}

// Instances returns the registered instances in configuration order.
func (registry *Registry) Instances() []Instance {
	return append([]Instance{}, registry.instances...)
}

// Lookup finds an instance by name.
func (registry *Registry) Lookup(name string) (Instance, bool) {
	index, found := registry.byName[strings.TrimSpace(name)]
	if !found {
		return Instance{}, false
	}
	return registry.instances[index], true
}

// LocateDirectory finds the instance whose checkout contains directory.
func (registry *Registry) LocateDirectory(directory string) (Instance, bool) {
	cleanedDirectory := filepath.Clean(strings.TrimSpace(directory))
	for _, instance := range registry.instances {
		relativePath, relativeError := filepath.Rel(instance.Path, cleanedDirectory)
		if relativeError != nil {
			continue
		}
		if relativePath == "." || (relativePath != ".." && !strings.HasPrefix(relativePath, ".."+string(filepath.Separator))) {
			return instance, true
		}
	}
	return Instance{}, false
}

// Resolve finds the instance checked out at version, honouring the integration flavour.
func (registry *Registry) Resolve(version string, integration bool) (Instance, bool) {
	return registry.Lookup(registry.InstanceName(version, integration))
}

// InstanceName composes the conventional instance name for version.
func (registry *Registry) InstanceName(version string, integration bool) string {
	prefix := registry.configuration.StablePrefix
	if integration {
		prefix = registry.configuration.IntegrationPrefix
	}
	return prefix + strings.TrimSpace(version)
}

// BranchName applies the branch naming rule for issue on the given version.
func (registry *Registry) BranchName(issue string, version string, suffix string) string {
	return BranchNamer{IssuePrefix: registry.configuration.IssuePrefix}.BranchName(issue, version, suffix)
}

func (registry *Registry) buildInstance(entry InstanceConfiguration) (Instance, error) {
	instance := Instance{
		Name:         strings.TrimSpace(entry.Name),
		Path:         strings.TrimSpace(entry.Path),
		Version:      strings.TrimSpace(entry.Version),
		StableBranch: strings.TrimSpace(entry.StableBranch),
		Integration:  entry.Integration,
	}

	if len(instance.Name) == 0 && len(instance.Version) == 0 {
		return Instance{}, fmt.Errorf("%w: "+instanceIdentityMissingMessageConstant, ErrInvalidInstance)
	}
	if len(instance.Name) == 0 {
		instance.Name = registry.InstanceName(instance.Version, instance.Integration)
	}
	if len(instance.Version) == 0 {
		instance.Version = registry.versionFromName(instance.Name, instance.Integration)
	}
	if len(instance.Version) == 0 {
		return Instance{}, fmt.Errorf("%w: "+instanceVersionMissingTemplateConstant, ErrInvalidInstance, instance.Name)
	}
	if len(instance.StableBranch) == 0 {
		instance.StableBranch = StableBranch(instance.Version)
	}
	if len(instance.Path) == 0 {
		if len(registry.configuration.Storage) == 0 {
			return Instance{}, fmt.Errorf("%w: "+instancePathMissingTemplateConstant, ErrInvalidInstance, instance.Name)
		}
		instance.Path = filepath.Join(registry.configuration.Storage, instance.Name, instanceCheckoutDirectoryConstant)
	}
	return instance, nil
}

func (registry *Registry) versionFromName(name string, integration bool) string {
	prefix := registry.configuration.StablePrefix
	if integration {
		prefix = registry.configuration.IntegrationPrefix
	}
	if !strings.HasPrefix(name, prefix) {
		return ""
	}
	return strings.TrimPrefix(name, prefix)
}

// StableBranch returns the upstream branch a version is released from.
func StableBranch(version string) string {
	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == MasterVersion {
		return masterBranchConstant
	}
	return fmt.Sprintf(stableBranchTemplateConstant, trimmedVersion)
}
