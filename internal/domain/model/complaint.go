package model

// DefaultComplaintTags seeds the complaint tag list of a fresh install.
var DefaultComplaintTags = []string{
	"Validation Delay",
	"Tracking Issue",
	"Retailer not Live",
	"Major cancellation : E Comm",
	"Major cancellation : Finance",
	"Better Rates on Competitors",
	"Miscellaneous",
	"Low Conversion on EK",
	"Affiliaters Issue",
	"Product Issue",
	"Amazon Disapproval",
	"Payment Related",
	"Zero Comission",
	"Other",
	"Paid Posts",
}
