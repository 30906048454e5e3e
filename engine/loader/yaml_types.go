package loader

// DefaultTicksPerSecond converts authored seconds into engine ticks when a file does not say otherwise.
const DefaultTicksPerSecond = 20.0

// animationFile is the root of a YAML animation file. Either section may be absent.
type animationFile struct {
	TicksPerSecond float64             `yaml:"ticks_per_second"`
	Skeleton       *skeletonDef       `yaml:"skeleton"`
	Animations     map[string]clipDef `yaml:"animations"`
}

type skeletonDef struct {
	Name  string     `yaml:"name"`
	Bones []boneDef `yaml:"bones"`
}

// boneDef is a bone and its children. Rotation is authored in degrees.
type boneDef struct {
	Name     string     `yaml:"name"`
	Pivot    []float64  `yaml:"pivot"`
	Rotation []float64  `yaml:"rotation"`
	Position []float64  `yaml:"position"`
	Scale    []float64  `yaml:"scale"`
	Children []boneDef `yaml:"children"`
}

// clipDef is one animation. Times are in seconds.
type clipDef struct {
	Loop      string               `yaml:"loop"`
	Length    float64              `yaml:"length"`
	Bones     map[string]trackDef `yaml:"bones"`
	Sounds    []soundDef          `yaml:"sound_effects"`
	Particles []particleDef       `yaml:"particle_effects"`
	Timeline  []instructionDef    `yaml:"timeline"`
}

type trackDef struct {
	Rotation []keyframeDef `yaml:"rotation"`
	Position []keyframeDef `yaml:"position"`
	Scale    []keyframeDef `yaml:"scale"`
}

// keyframeDef is a value reached at Time. Each value is a number or an expression.
type keyframeDef struct {
	Time             float64  `yaml:"time"`
	Value            []string `yaml:"value"`
	Easing           string   `yaml:"easing"`
	NoEasingOverride bool     `yaml:"no_easing_override"`
}

type soundDef struct {
	Time   float64 `yaml:"time"`
	Effect string  `yaml:"effect"`
}

type particleDef struct {
	Time    float64 `yaml:"time"`
	Effect  string  `yaml:"effect"`
	Locator string  `yaml:"locator"`
	Script  string  `yaml:"script"`
}

type instructionDef struct {
	Time        float64 `yaml:"time"`
	Instruction string  `yaml:"instruction"`
}
