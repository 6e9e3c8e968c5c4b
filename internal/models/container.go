package models

import "gopkg.in/yaml.v3"

// Control-directive label keys. They ride in the generic Compose labels map,
// are lifted into ContainerConfig fields by the mapper and are never attached
// to the real container.
const (
	ControlPrefix = "iob"

	LabelEnabled           = "iobEnabled"
	LabelStopOnUnload      = "iobStopOnUnload"
	LabelAutoImageUpdate   = "iobAutoImageUpdate"
	LabelMonitoringEnabled = "iobMonitoringEnabled"
	LabelWaitForReady      = "iobWaitForReady"
	LabelBackup            = "iobBackup"
	LabelCopyVolumes       = "iobCopyVolumes"
)

// ContainerConfig is the runtime-agnostic desired specification for one
// container. Name and Image are always present after mapping.
//
// The yaml tags double as the canonical field names used in diff paths, so
// renaming a tag changes the externally visible diff output.
type ContainerConfig struct {
	Name       string            `yaml:"name" json:"name"`
	Image      string            `yaml:"image" json:"image"`
	Command    []string          `yaml:"command,omitempty" json:"command,omitempty"`
	Entrypoint []string          `yaml:"entrypoint,omitempty" json:"entrypoint,omitempty"`
	User       string            `yaml:"user,omitempty" json:"user,omitempty"`
	WorkingDir string            `yaml:"workdir,omitempty" json:"workdir,omitempty"`
	Hostname   string            `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	Env        map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
	Labels     map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`

	Ports       []PortBinding `yaml:"ports,omitempty" json:"ports,omitempty"`
	Mounts      []Mount       `yaml:"mounts,omitempty" json:"mounts,omitempty"`
	Tmpfs       []string      `yaml:"tmpfs,omitempty" json:"tmpfs,omitempty"`
	Devices     []string      `yaml:"devices,omitempty" json:"devices,omitempty"`
	Networks    []string      `yaml:"networks,omitempty" json:"networks,omitempty"`
	NetworkMode string        `yaml:"networkMode,omitempty" json:"networkMode,omitempty"`
	ExtraHosts  []string      `yaml:"extraHosts,omitempty" json:"extraHosts,omitempty"`
	DNS         []string      `yaml:"dns,omitempty" json:"dns,omitempty"`
	DNSSearch   []string      `yaml:"dnsSearch,omitempty" json:"dnsSearch,omitempty"`

	Healthcheck *Healthcheck      `yaml:"healthcheck,omitempty" json:"healthcheck,omitempty"`
	Restart     string            `yaml:"restart,omitempty" json:"restart,omitempty"`
	Logging     *Logging          `yaml:"logging,omitempty" json:"logging,omitempty"`
	Security    *Security         `yaml:"security,omitempty" json:"security,omitempty"`
	Sysctls     map[string]string `yaml:"sysctls,omitempty" json:"sysctls,omitempty"`
	Stop        *StopConfig       `yaml:"stop,omitempty" json:"stop,omitempty"`
	Resources   *Resources        `yaml:"resources,omitempty" json:"resources,omitempty"`
	DependsOn   []string          `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	Tty         bool              `yaml:"tty,omitempty" json:"tty,omitempty"`

	// Owner-control directives. Pointer booleans default to true when unset.
	IobEnabled           *bool `yaml:"iobEnabled,omitempty" json:"iobEnabled,omitempty"`
	IobStopOnUnload      *bool `yaml:"iobStopOnUnload,omitempty" json:"iobStopOnUnload,omitempty"`
	IobAutoImageUpdate   bool  `yaml:"iobAutoImageUpdate,omitempty" json:"iobAutoImageUpdate,omitempty"`
	IobMonitoringEnabled bool  `yaml:"iobMonitoringEnabled,omitempty" json:"iobMonitoringEnabled,omitempty"`
	IobWaitForReady      bool  `yaml:"iobWaitForReady,omitempty" json:"iobWaitForReady,omitempty"`
}

// PortBinding is one published port.
type PortBinding struct {
	HostIP        string `yaml:"hostIP,omitempty" json:"hostIP,omitempty"`
	HostPort      int    `yaml:"hostPort,omitempty" json:"hostPort,omitempty"`
	ContainerPort int    `yaml:"containerPort" json:"containerPort"`
	Protocol      string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
}

// Mount is one bind or volume mount plus its owner-control sub-flags.
type Mount struct {
	Type     string `yaml:"type" json:"type"`
	Source   string `yaml:"source,omitempty" json:"source,omitempty"`
	Target   string `yaml:"target" json:"target"`
	ReadOnly bool   `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`

	IobBackup            bool   `yaml:"iobBackup,omitempty" json:"iobBackup,omitempty"`
	IobAutoCopyFrom      string `yaml:"iobAutoCopyFrom,omitempty" json:"iobAutoCopyFrom,omitempty"`
	IobAutoCopyFromForce bool   `yaml:"iobAutoCopyFromForce,omitempty" json:"iobAutoCopyFromForce,omitempty"`
}

// Security groups the isolation-related settings.
type Security struct {
	Privileged  bool     `yaml:"privileged,omitempty" json:"privileged,omitempty"`
	CapAdd      []string `yaml:"capAdd,omitempty" json:"capAdd,omitempty"`
	CapDrop     []string `yaml:"capDrop,omitempty" json:"capDrop,omitempty"`
	SecurityOpt []string `yaml:"securityOpt,omitempty" json:"securityOpt,omitempty"`
	UsernsMode  string   `yaml:"usernsMode,omitempty" json:"usernsMode,omitempty"`
	IpcMode     string   `yaml:"ipcMode,omitempty" json:"ipcMode,omitempty"`
	PidMode     string   `yaml:"pidMode,omitempty" json:"pidMode,omitempty"`
}

// StopConfig carries the stop signal and grace period.
type StopConfig struct {
	Signal      string `yaml:"signal,omitempty" json:"signal,omitempty"`
	GracePeriod string `yaml:"gracePeriod,omitempty" json:"gracePeriod,omitempty"`
}

// Resources carries cpu/memory limits. Memory values are bytes.
type Resources struct {
	CPUs              float64 `yaml:"cpus,omitempty" json:"cpus,omitempty"`
	Memory            int64   `yaml:"memory,omitempty" json:"memory,omitempty"`
	MemoryReservation int64   `yaml:"memoryReservation,omitempty" json:"memoryReservation,omitempty"`
}

// Enabled reports the iobEnabled directive (default true).
func (c *ContainerConfig) Enabled() bool {
	return c.IobEnabled == nil || *c.IobEnabled
}

// StopOnUnload reports the iobStopOnUnload directive (default true).
func (c *ContainerConfig) StopOnUnload() bool {
	return c.IobStopOnUnload == nil || *c.IobStopOnUnload
}

// Clone returns a deep copy. The controller derives an enforced (prefixed)
// config from the declared one without mutating it.
func (c *ContainerConfig) Clone() *ContainerConfig {
	data, err := yaml.Marshal(c)
	if err != nil {
		// ContainerConfig contains only marshalable fields.
		panic(err)
	}
	out := &ContainerConfig{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

// BoolPtr is a convenience for the pointer-valued control flags.
func BoolPtr(b bool) *bool { return &b }
