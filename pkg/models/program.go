package models

const (
	ProgramFieldFound     = "found"
	ProgramFieldPublished = "published"
	ProgramFieldImage     = "image"
	ProgramFieldExpire    = "expire_unix"
	ProgramFieldCodes     = "codes"
)

// SpecialProgram tracks the codes revealed during a version livestream
type SpecialProgram struct {
	Game       Game     `bson:"game" json:"game"`
	Version    string   `bson:"version" json:"version"`
	Found      bool     `bson:"found" json:"found"`
	Published  bool     `bson:"published" json:"published"`
	Image      *string  `bson:"image" json:"image"`
	ExpireUnix *int64   `bson:"expire_unix" json:"expire_unix"`
	Codes      []string `bson:"codes" json:"codes"`
}

// NewSpecialProgram returns the zero-state program document
func NewSpecialProgram(game Game, version string) *SpecialProgram {
	return &SpecialProgram{
		Game:    game,
		Version: version,
		Codes:   []string{},
	}
}

// HasCode reports whether code is already a member of the program
func (p *SpecialProgram) HasCode(code string) bool {
	for _, c := range p.Codes {
		if c == code {
			return true
		}
	}
	return false
}
