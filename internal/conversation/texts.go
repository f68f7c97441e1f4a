package conversation

// User-facing texts.
const (
	txtWelcome         = "Welcome! Choose an option:"
	txtChooseCategory  = "Choose a category:"
	txtNoCategories    = "No categories yet."
	txtEmptyCategory   = "No stories in this category yet."
	txtListenPrompt    = "Which episode? Use format Ep1 or Ep1-10 or Ep1-100"
	txtListenFormat    = "Wrong format. Use Ep1 or Ep1-10 (case sensitive Ep)."
	txtEpisodePrompt   = "Which episode? Send a number like 3 or a range like 1-10."
	txtEpisodeFormat   = "Wrong format. Send a number like 3 or a range like 1-10."
	txtEpisodeNotFound = "Episode not found."
	txtRangeNotFound   = "No shortlink found for that range. Sorry."
	txtStoryNotFound   = "Story not found."
	txtSearchPrompt    = "Please send story name in CAPITAL letters (exact)."
	txtSearchCapitals  = "Please send story name in CAPITAL letters only."
	txtSearchNone      = "This story is not available. Use Request & Comment to ask owner."
	txtRequestPrompt   = "Please write your message for owner/admin. It will be forwarded."
	txtRequestSent     = "Your message has been forwarded to the owner/admin. Thank you."
	txtRequestNotSent  = "Couldn't forward. But your request is saved."
	txtRequestText     = "Please send your request as a text message."
	txtUnsolicitedAck  = "Thanks, your message was passed on to the admins. Use /start to open the menu."
	txtUnhandled       = "I didn't understand that. Use the buttons or /start to go to main menu."
	txtCancelled       = "Cancelled. Use /start to open the menu."
	txtPong            = "Pong ✅"
	txtTryAgain        = "Something went wrong. Please try again."
	txtActionFailed    = "Action failed. Please start over with /start."

	txtNotAuthorized        = "You are not authorized to perform admin actions."
	txtNotAuthorizedCommand = "Not authorized to use this command."
	txtAdminOptions         = "Admin options for %s:"
	txtTitlePrompt          = "Please send story title (e.g. YODDHA)."
	txtPhotoPrompt          = "Now send story photo (as photo, not file)."
	txtDescriptionPrompt    = "Photo set successfully. Now send story description."
	txtFollowSteps          = "Please follow the steps. Send title / photo / description as prompted."
	txtStoryAdded           = "Congrats! Story added: %s (%s). Choose episode option:"
	txtChannelFailed        = "Story saved, but posting to the storage channel failed."
	txtSaveRetry            = "Couldn't save right now. Send it again to retry."
	txtVisionPrompt         = "Please send vision count number (e.g. fa01)."
	txtVisionUnknown        = "No story with vision id %s. Send another one or /cancel."
	txtUpdateOptions        = "%s (%s). Next free episode is Ep%d. Choose episode option:"
	txtLinkPrompt           = "Send redirect link for Ep%d."
	txtShortlinkPrompt      = "Send shortlink that covers Ep%d-Ep%d."
	txtLinkInvalid          = "Please send a valid URL starting with http/https."
	txtShortlinkEmpty       = "Please send the shortlink as text."
	txtLinkSaved            = "Ep%d link saved successfully. Add next?"
	txtShortlinkSaved       = "Shortlink saved for Ep%d-Ep%d successfully."
	txtAddAdminUsage        = "Usage: /addadmin <user id>"
	txtAdminGranted         = "User %d is now an admin."
)

// Button labels.
const (
	btnExplore   = "Explore All"
	btnSearch    = "Search"
	btnRequest   = "Request & Comment"
	btnBack      = "⟵ Back"
	btnListen    = "Listen"
	btnEpisodes  = "Episodes"
	btnAddNew    = "+AddNEW"
	btnUpdateOld = "+UpdateOLD"
	btnCancel    = "Cancel"
)
