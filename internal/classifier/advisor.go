package classifier

import (
	"github.com/disputeflow/backend/internal/config"
	"github.com/disputeflow/backend/internal/models"
)

// Advisor maps a resolved category to a suggested action and a justification
// built from the static template plus the resolver's explanation, so every
// suggestion stays traceable to the evidence that produced it.
type Advisor struct {
	resolutions map[string]config.Resolution
}

func NewAdvisor(resolutions map[string]config.Resolution) *Advisor {
	return &Advisor{resolutions: resolutions}
}

func (a *Advisor) Advise(category string, explanation string) (string, string) {
	res, ok := a.resolutions[category]
	if !ok {
		res = a.resolutions[models.CategoryOthers]
	}
	return res.Action, res.Justification + " Reason: " + explanation
}
