package instances_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mdk/internal/instances"
)

func TestNewRegistryDerivesInstanceAttributes(testInstance *testing.T) {
	configuration := instances.DefaultConfiguration()
	configuration.Storage = "/srv/moodles"
	configuration.Instances = []instances.InstanceConfiguration{
		{Version: "23"},
		{Name: "stable_24", Path: "/opt/m24"},
		{Version: "master", Integration: true},
		{Name: "custom", Version: "25", StableBranch: "MOODLE_25_HOTFIX"},
	}

	registry, registryError := instances.NewRegistry(configuration)
	require.NoError(testInstance, registryError)

	require.Equal(testInstance, []instances.Instance{
		{Name: "stable_23", Path: filepath.Join("/srv/moodles", "stable_23", "moodle"), Version: "23", StableBranch: "MOODLE_23_STABLE"},
		{Name: "stable_24", Path: "/opt/m24", Version: "24", StableBranch: "MOODLE_24_STABLE"},
		{Name: "integration_master", Path: filepath.Join("/srv/moodles", "integration_master", "moodle"), Version: "master", StableBranch: "master", Integration: true},
		{Name: "custom", Path: filepath.Join("/srv/moodles", "custom", "moodle"), Version: "25", StableBranch: "MOODLE_25_HOTFIX"},
	}, registry.Instances())
}

func TestNewRegistryRejectsInvalidEntries(testInstance *testing.T) {
	testCases := []struct {
		name      string
		storage   string
		instances []instances.InstanceConfiguration
	}{
		{name: "missing_identity", storage: "/srv", instances: []instances.InstanceConfiguration{{Path: "/opt/m"}}},
		{name: "unprefixed_name_without_version", storage: "/srv", instances: []instances.InstanceConfiguration{{Name: "sandbox"}}},
		{name: "missing_path_and_storage", instances: []instances.InstanceConfiguration{{Version: "23"}}},
		{name: "duplicate_name", storage: "/srv", instances: []instances.InstanceConfiguration{{Version: "23"}, {Name: "stable_23", Version: "23"}}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			configuration := instances.DefaultConfiguration()
			configuration.Storage = testCase.storage
			configuration.Instances = testCase.instances

			_, registryError := instances.NewRegistry(configuration)
			require.ErrorIs(testInstance, registryError, instances.ErrInvalidInstance)
		})
	}
}

func TestRegistryResolveHonoursIntegrationFlavour(testInstance *testing.T) {
	configuration := instances.Configuration{
		Storage: "/srv/moodles",
		Instances: []instances.InstanceConfiguration{
			{Version: "23"},
			{Version: "23", Integration: true},
		},
	}
	registry, registryError := instances.NewRegistry(configuration)
	require.NoError(testInstance, registryError)

	stable, found := registry.Resolve("23", false)
	require.True(testInstance, found)
	require.Equal(testInstance, "stable_23", stable.Name)

	integration, found := registry.Resolve("23", true)
	require.True(testInstance, found)
	require.Equal(testInstance, "integration_23", integration.Name)

	_, found = registry.Resolve("24", false)
	require.False(testInstance, found)

	_, found = registry.Lookup(" stable_23 ")
	require.True(testInstance, found)
}

func TestRegistryHonoursCustomPrefixes(testInstance *testing.T) {
	configuration := instances.Configuration{
		Storage:           "/srv",
		StablePrefix:      "s",
		IntegrationPrefix: "i",
		IssuePrefix:       "TRK-",
		Instances:         []instances.InstanceConfiguration{{Name: "s27"}},
	}
	registry, registryError := instances.NewRegistry(configuration)
	require.NoError(testInstance, registryError)

	instance, found := registry.Resolve("27", false)
	require.True(testInstance, found)
	require.Equal(testInstance, "27", instance.Version)
	require.Equal(testInstance, "i27", registry.InstanceName("27", true))
	require.Equal(testInstance, "TRK-42-27", registry.BranchName("42", "27", ""))
}

func TestBranchNamer(testInstance *testing.T) {
	testCases := []struct {
		name     string
		issue    string
		version  string
		suffix   string
		expected string
	}{
		{name: "numeric_issue", issue: "12345", version: "23", expected: "MDL-12345-23"},
		{name: "prefixed_issue", issue: "MDL-12345", version: "master", expected: "MDL-12345-master"},
		{name: "suffix", issue: "12345", version: "24", suffix: "wip", expected: "MDL-12345-24-wip"},
		{name: "blank_suffix", issue: " 1 ", version: "24", suffix: "  ", expected: "MDL-1-24"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			namer := instances.BranchNamer{}
			require.Equal(testInstance, testCase.expected, namer.BranchName(testCase.issue, testCase.version, testCase.suffix))
		})
	}
}

func TestStableBranch(testInstance *testing.T) {
	require.Equal(testInstance, "MOODLE_23_STABLE", instances.StableBranch("23"))
	require.Equal(testInstance, "master", instances.StableBranch(instances.MasterVersion))
}

func TestRegistryLocateDirectory(testInstance *testing.T) {
	configuration := instances.DefaultConfiguration()
	configuration.Storage = "/srv/moodles"
	configuration.Instances = []instances.InstanceConfiguration{{Version: "23"}, {Version: "24"}}
	registry, registryError := instances.NewRegistry(configuration)
	require.NoError(testInstance, registryError)

	instance, found := registry.LocateDirectory("/srv/moodles/stable_24/moodle/lib/tests")
	require.True(testInstance, found)
	require.Equal(testInstance, "stable_24", instance.Name)

	instance, found = registry.LocateDirectory("/srv/moodles/stable_23/moodle")
	require.True(testInstance, found)
	require.Equal(testInstance, "stable_23", instance.Name)

	_, found = registry.LocateDirectory("/srv/moodles/stable_23")
	require.False(testInstance, found)
	_, found = registry.LocateDirectory("/srv/moodles/stable_23/moodle..old")
	require.False(testInstance, found)
}
