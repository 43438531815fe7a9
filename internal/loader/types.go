package loader

// FragmentDesc describes one fragment. Field tags serve both the YAML
// decoder and CUE's Decode (which reads json tags).
type FragmentDesc struct {
	Name   string      `yaml:"name" json:"name,omitempty"`
	Vars   []VarDesc   `yaml:"vars,omitempty" json:"vars,omitempty"`
	Blocks []BlockDesc `yaml:"blocks" json:"blocks"`
}

// VarDesc describes a variable. Default and Init are expressions.
type VarDesc struct {
	Name      string     `yaml:"name" json:"name"`
	Type      string     `yaml:"type" json:"type"`
	Scope     string     `yaml:"scope,omitempty" json:"scope,omitempty"`
	Const     bool       `yaml:"const,omitempty" json:"const,omitempty"`
	NoPromote bool       `yaml:"no_promote,omitempty" json:"no_promote,omitempty"`
	Default   string     `yaml:"default,omitempty" json:"default,omitempty"`
	Init      string     `yaml:"init,omitempty" json:"init,omitempty"`
	Ctor      []StmtDesc `yaml:"ctor,omitempty" json:"ctor,omitempty"`
	Label     string     `yaml:"label,omitempty" json:"label,omitempty"`
}

// BlockDesc describes a block. Labels are unique within a fragment.
type BlockDesc struct {
	Label string     `yaml:"label" json:"label"`
	Stmts []StmtDesc `yaml:"stmts" json:"stmts"`
}

// StmtDesc describes one statement; exactly one kind key is set.
type StmtDesc struct {
	Do           string     `yaml:"do,omitempty" json:"do,omitempty"`
	Set          string     `yaml:"set,omitempty" json:"set,omitempty"`
	Value        string     `yaml:"value,omitempty" json:"value,omitempty"`
	Guard        string     `yaml:"guard,omitempty" json:"guard,omitempty"`
	Then         []StmtDesc `yaml:"then,omitempty" json:"then,omitempty"`
	Scope        []StmtDesc `yaml:"scope,omitempty" json:"scope,omitempty"`
	Br           string     `yaml:"br,omitempty" json:"br,omitempty"`
	Exit         bool       `yaml:"exit,omitempty" json:"exit,omitempty"`
	When         string     `yaml:"when,omitempty" json:"when,omitempty"`
	Likelihood   string     `yaml:"likelihood,omitempty" json:"likelihood,omitempty"`
	Threading    string     `yaml:"threading,omitempty" json:"threading,omitempty"`
	Note         string     `yaml:"note,omitempty" json:"note,omitempty"`
	Plain        string     `yaml:"plain,omitempty" json:"plain,omitempty"`
	InlineTarget bool       `yaml:"inline_target,omitempty" json:"inline_target,omitempty"`
}

// kinds lists the kind keys set on s.
func (s *StmtDesc) kinds() []string {
	var k []string
	if s.Do != "" {
		k = append(k, "do")
	}
	if s.Set != "" {
		k = append(k, "set")
	}
	if s.Guard != "" {
		k = append(k, "guard")
	}
	if len(s.Scope) > 0 {
		k = append(k, "scope")
	}
	if s.Br != "" {
		k = append(k, "br")
	}
	if s.Exit {
		k = append(k, "exit")
	}
	if s.Note != "" {
		k = append(k, "note")
	}
	if s.Plain != "" {
		k = append(k, "plain")
	}
	if s.InlineTarget {
		k = append(k, "inline_target")
	}
	return k
}
