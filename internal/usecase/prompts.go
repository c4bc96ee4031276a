package usecase

// Candidate-facing message templates, keyed by the stage logic that emits
// them. Rendering happens through small helpers so no handler builds ad hoc
// strings.

const (
	msgWelcome = "Welcome! I'm your automated screening interviewer. " +
		"This is a short conversation to get to know you before a human interview."
	msgSelectJD      = "Which role are you applying for? The options are: %s."
	msgSelectJDRetry = "Sorry, I couldn't match that to one of our open roles. Please pick one of: %s."
	msgAskName       = "Great, we'll talk about the %s role. Before we begin, could you tell me your name?"
	msgAskNameRetry  = "Sorry, I didn't catch your name. Could you tell me your name again?"
	msgPreScreen     = "Nice to meet you, %s. To start: why are you interested in this role, and what makes you a good fit?"
	msgClosing       = "Thank you, %s, that was my last question. Say anything to receive your screening summary."
	msgAlreadyDone   = "This interview is already complete. Thank you again for your time!"
	msgEmptyInput    = "I didn't receive any speech. Could you please repeat that?"
	msgTechTrouble   = "We're experiencing technical difficulties. Could you please repeat that?"
	msgUnknownState  = "Something unexpected happened with the interview. Please contact the recruiting team."
)
