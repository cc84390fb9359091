package models

// Field names of a code document, used for single-field updates
const (
	CodeFieldDiscovered = "discovered_unix"
	CodeFieldExpire     = "expire_unix"
	CodeFieldIsChina    = "is_china"
	CodeFieldPublished  = "published"
	CodeFieldRedeemed   = "redeemed"
	CodeFieldRewards    = "rewards"
)

// CodeReward is a single reward line of a code
type CodeReward struct {
	Reward string `bson:"reward" json:"reward"`
	Amount int    `bson:"amount" json:"amount"`
}

// Code is a redemption code of one game. Identity is (Game, Code).
type Code struct {
	Game           Game         `bson:"game" json:"game"`
	Code           string       `bson:"code" json:"code"`
	IsChina        *bool        `bson:"is_china" json:"is_china"`
	Rewards        []CodeReward `bson:"rewards" json:"rewards"`
	DiscoveredUnix *int64       `bson:"discovered_unix" json:"discovered_unix"`
	ExpireUnix     *int64       `bson:"expire_unix" json:"expire_unix"`
	Published      bool         `bson:"published" json:"published"`
	Redeemed       *bool        `bson:"redeemed" json:"redeemed"`
}

// NewCode returns the zero-state document inserted on first observation
func NewCode(game Game, code string) *Code {
	return &Code{
		Game:    game,
		Code:    code,
		Rewards: []CodeReward{},
	}
}

// RedemptionOutcome is the tri-state result of validating a code
type RedemptionOutcome int

const (
	OutcomeUnknown RedemptionOutcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o RedemptionOutcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome maps the stored redeemed flag to a RedemptionOutcome
func (c *Code) Outcome() RedemptionOutcome {
	switch {
	case c.Redeemed == nil:
		return OutcomeUnknown
	case *c.Redeemed:
		return OutcomeSucceeded
	default:
		return OutcomeFailed
	}
}

// China reports whether the code is flagged as exclusive to the China region
func (c *Code) China() bool {
	return c.IsChina != nil && *c.IsChina
}

// HasReward reports whether a reward with the given name is attached
func (c *Code) HasReward(name string) bool {
	for _, r := range c.Rewards {
		if r.Reward == name {
			return true
		}
	}
	return false
}
