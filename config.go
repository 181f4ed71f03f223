package candy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a typed settings store generalizing the teacher's
// `config.go`: one flat map keyed by dotted path, with Set/Get pairs per
// value type that panic on type confusion or a missing key, exactly the
// way the teacher's `cfgVal.assignType`/`checkType` do.
type Config map[string]*cfgVal

// NewConfig returns a Config primed with every default Candy's compiler,
// VM, and fuzzer need (spec §9 "Open questions implementers should
// decide deliberately").
func NewConfig() *Config {
	m := make(Config)
	m.SetInt("compiler.optimize", 1)
	m.SetInt("compiler.inline.tiny_threshold", 20)
	m.SetInt("compiler.inline.callsite_slack", 3)
	m.SetInt("vm.channel.max_capacity", 10_000)
	m.SetInt("vm.packet.max_size", 1_000_000)
	m.SetInt("fuzzer.input_budget", 1000)
	m.SetInt("fuzzer.instruction_budget", 100_000)
	m.SetBool("tracing.register_fuzzables", true)
	m.SetBool("tracing.calls", false)
	m.SetBool("tracing.evaluated_expressions", false)
	return &m
}

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_String
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined: "undefined",
		cfgValType_Bool:      "bool",
		cfgValType_Int:       "int",
		cfgValType_String:    "string",
	}[vt]
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asString string
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("Can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("Can't retrieve `%s` from `%s` variable", vt, v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("Bool setting `%s` does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("Int setting `%s` does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("String setting `%s` does not exist", path))
}

// LoadYAML decodes a flat `key: value` YAML document and merges it into
// c, inferring each cfgVal's type from the decoded YAML scalar. Unlike
// Set*/Get*, this never panics on a missing key — a host project file is
// allowed to only override a subset of settings.
func (c *Config) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	for k, v := range raw {
		switch val := v.(type) {
		case bool:
			c.SetBool(k, val)
		case int:
			c.SetInt(k, val)
		case string:
			c.SetString(k, val)
		default:
			return fmt.Errorf("config key %q: unsupported YAML value %#v", k, v)
		}
	}
	return nil
}
