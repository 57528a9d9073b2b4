package dialog

// Step names one position in a command's fixed step sequence.
type Step string

const (
	StepUsername        Step = "username"
	StepPassword        Step = "password"
	StepConfirmExit     Step = "confirm_exit"
	StepChooseMode      Step = "choose_mode"
	StepShowCurrent     Step = "show_current"
	StepChooseAgreement Step = "choose_agreement"
	StepEnterAmount     Step = "enter_amount"
	StepChoosePeriod    Step = "choose_period"
)

// stepCatalog fixes the step sequence per dialog command. Sequences are
// immutable after startup; transformers only move an index over them.
var stepCatalog = map[CommandName][]Step{
	CommandLogin:           {StepUsername, StepPassword},
	CommandExit:            {StepConfirmExit},
	CommandNotifications:   {StepChooseMode},
	CommandSwitchAgreement: {StepShowCurrent, StepChooseAgreement},
	CommandPromisePayment:  {StepEnterAmount},
	CommandYookassaPayment: {StepEnterAmount},
	CommandPaymentHistory:  {StepChoosePeriod},
}

// StepsFor returns a copy of the step sequence for a dialog command.
func StepsFor(name CommandName) []Step {
	steps, ok := stepCatalog[name]
	if !ok {
		return nil
	}
	return append([]Step(nil), steps...)
}
