package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// SurveyConfirmer asks the operator on the terminal. The default answer is
// no: anything but an explicit yes declines.
type SurveyConfirmer struct{}

func (SurveyConfirmer) Confirm(prompt string) (bool, error) {
	var proceed bool
	q := &survey.Confirm{
		Message: prompt,
		Default: false,
	}
	if err := survey.AskOne(q, &proceed); err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return proceed, nil
}
