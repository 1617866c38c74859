// Package theme is the dashboard's styling configuration: font variables,
// colour tokens and the ticker marquee animation. It is read from YAML and
// rendered to CSS, either at build time by cmd/themegen or by the server at
// start.
package theme

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Font binds a web font family to a CSS custom property.
type Font struct {
	Name     string   `yaml:"name"`
	Variable string   `yaml:"variable"`
	Family   string   `yaml:"family"`
	Weights  []int    `yaml:"weights"`
	Fallback []string `yaml:"fallback"`
}

type Keyframe struct {
	At        string `yaml:"at"`
	Transform string `yaml:"transform"`
}

type Animation struct {
	Name      string     `yaml:"name"`
	Duration  string     `yaml:"duration"`
	Timing    string     `yaml:"timing"`
	Iteration string     `yaml:"iteration"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

type Theme struct {
	Fonts      []Font            `yaml:"fonts"`
	Colors     map[string]string `yaml:"colors"`
	Animations []Animation       `yaml:"animations"`
}

func Default() Theme {
	return Theme{
		Fonts: []Font{
			{Name: "sans", Variable: "--font-sans", Family: "Inter", Weights: []int{400, 500, 600, 700}, Fallback: []string{"system-ui", "sans-serif"}},
			{Name: "mono", Variable: "--font-mono", Family: "JetBrains Mono", Weights: []int{400, 500}, Fallback: []string{"ui-monospace", "monospace"}},
		},
		Colors: map[string]string{
			"background": "#0b0e14",
			"surface":    "#131722",
			"border":     "#1f2633",
			"foreground": "#e6e8ee",
			"muted":      "#8a93a6",
			"accent":     "#3b82f6",
			"up":         "#16a34a",
			"down":       "#dc2626",
		},
		Animations: []Animation{{
			Name:      "marquee",
			Duration:  "40s",
			Timing:    "linear",
			Iteration: "infinite",
			Keyframes: []Keyframe{
				{At: "0%", Transform: "translateX(0%)"},
				{At: "100%", Transform: "translateX(-50%)"},
			},
		}},
	}
}

// Load reads a YAML theme, expanding ${VAR} references from the environment.
// An empty path yields Default().
func Load(path string) (Theme, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("read theme file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML theme document.
func Parse(data []byte) (Theme, error) {
	var t Theme
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &t); err != nil {
		return Theme{}, fmt.Errorf("parse theme yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Theme{}, fmt.Errorf("validate theme: %w", err)
	}
	return t, nil
}

func (t Theme) Validate() error {
	var errs []error
	if len(t.Fonts) == 0 {
		errs = append(errs, errors.New("at least one font is required"))
	}
	for i, f := range t.Fonts {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("fonts[%d]: name is required", i))
		}
		if f.Family == "" {
			errs = append(errs, fmt.Errorf("fonts[%d]: family is required", i))
		}
		if !strings.HasPrefix(f.Variable, "--") {
			errs = append(errs, fmt.Errorf("fonts[%d]: variable %q must start with --", i, f.Variable))
		}
	}
	names := make([]string, 0, len(t.Colors))
	for name := range t.Colors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(t.Colors[name]) == "" {
			errs = append(errs, fmt.Errorf("colors.%s: value is empty", name))
		}
	}
	if len(t.Animations) != 1 {
		errs = append(errs, fmt.Errorf("exactly one animation is required, got %d", len(t.Animations)))
	}
	for i, a := range t.Animations {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("animations[%d]: name is required", i))
		}
		if d, err := time.ParseDuration(a.Duration); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("animations[%d]: duration %q must be positive", i, a.Duration))
		}
		if len(a.Keyframes) < 2 {
			errs = append(errs, fmt.Errorf("animations[%d]: at least two keyframes are required", i))
		}
	}
	return errors.Join(errs...)
}

// Marquee returns the ticker animation.
func (t Theme) Marquee() Animation {
	if len(t.Animations) == 0 {
		return Animation{}
	}
	return t.Animations[0]
}

// FontsURL is the Google Fonts stylesheet URL loading every font family.
func (t Theme) FontsURL() string {
	var b strings.Builder
	b.WriteString("https://fonts.googleapis.com/css2?")
	for i, f := range t.Fonts {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString("family=")
		b.WriteString(strings.ReplaceAll(f.Family, " ", "+"))
		if len(f.Weights) > 0 {
			ws := append([]int(nil), f.Weights...)
			sort.Ints(ws)
			parts := make([]string, len(ws))
			for j, w := range ws {
				parts[j] = strconv.Itoa(w)
			}
			b.WriteString(":wght@")
			b.WriteString(strings.Join(parts, ";"))
		}
	}
	b.WriteString("&display=swap")
	return b.String()
}

// CSS renders the custom properties, the body font and the marquee animation.
func (t Theme) CSS() string {
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, f := range t.Fonts {
		stack := append([]string{strconv.Quote(f.Family)}, f.Fallback...)
		fmt.Fprintf(&b, "  %s: %s;\n", f.Variable, strings.Join(stack, ", "))
	}
	keys := make([]string, 0, len(t.Colors))
	for k := range t.Colors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  --color-%s: %s;\n", k, t.Colors[k])
	}
	b.WriteString("}\n\n")

	if len(t.Fonts) > 0 {
		fmt.Fprintf(&b, "body {\n  font-family: var(%s);\n}\n\n", t.Fonts[0].Variable)
	}
	for _, f := range t.Fonts {
		fmt.Fprintf(&b, ".font-%s {\n  font-family: var(%s);\n}\n\n", f.Name, f.Variable)
	}

	for _, a := range t.Animations {
		fmt.Fprintf(&b, "@keyframes %s {\n", a.Name)
		for _, k := range a.Keyframes {
			fmt.Fprintf(&b, "  %s { transform: %s; }\n", k.At, k.Transform)
		}
		b.WriteString("}\n\n")
		timing, iter := a.Timing, a.Iteration
		if timing == "" {
			timing = "linear"
		}
		if iter == "" {
			iter = "infinite"
		}
		fmt.Fprintf(&b, ".animate-%s {\n  animation: %s %s %s %s;\n}\n", a.Name, a.Name, a.Duration, timing, iter)
	}
	return b.String()
}
