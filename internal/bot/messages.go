package bot

const (
	msgGreeting = "Hi! I manage 96-well plates for your researches. Commands:\n" +
		"/new_research - start a new research\n" +
		"/add_objects - how to place objects on a plate\n" +
		"/show_researches - show every open plate\n" +
		"/close_research - close a research and show its final plate\n" +
		"/print_plate - get a plate as a PDF"

	msgAskResearchName   = "Enter the name of the new research:"
	msgResearchStarted   = "New research '%s' started."
	msgResearchExists    = "A research with this name already exists. Try another name."
	msgResearchNameBlank = "The research name cannot be empty."

	msgNoResearches      = "No active researches."
	msgNoResearchesToAdd = "No active researches. Create one first with /new_research."
	msgNoResearchesPrint = "No active researches to print."
	msgPlacementHelp     = "Enter the data in the format:\n" +
		"<research name> <expertise number> <object count> <comma-separated object numbers>\n" +
		"Example: VersaPlex 16654 3 1,5,6"
	msgActiveResearches = "Active researches:"

	msgAskCloseTarget = "Enter the name of the research to close:"
	msgResearchClosed = "Research '%s' closed. Final plate:"
	msgAskPrintTarget = "Enter the name of the research to print:"
	msgPlateCaption   = "Plate for research '%s'"
	msgDeliveryFailed = "Failed to send the PDF file. Please try again."

	msgUnknownResearch = "No such research. Check the name."
	msgCountMismatch   = "The number of objects does not match the declared count."
	msgMalformedInput  = "Error: check the input format."
	msgObjectsPlaced   = "Objects added successfully."
	msgPlateFull       = "The plate is full, not all objects could be added."
)
