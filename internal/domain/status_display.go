package domain

// StatusDisplay is how a client renders a status badge.
type StatusDisplay struct {
	Label        string `json:"label"`
	DisplayClass string `json:"display_class"`
}

var unknownDisplay = StatusDisplay{Label: "Unknown", DisplayClass: "badge-muted"}

var earlyReturnDisplay = map[EarlyReturnStatus]StatusDisplay{
	EarlyReturnStatusPending:       {Label: "Awaiting pickup", DisplayClass: "badge-warning"},
	EarlyReturnStatusAcknowledged:  {Label: "Pickup scheduled", DisplayClass: "badge-info"},
	EarlyReturnStatusReturned:      {Label: "Returned to owner", DisplayClass: "badge-primary"},
	EarlyReturnStatusCompleted:     {Label: "Completed", DisplayClass: "badge-success"},
	EarlyReturnStatusAutoCompleted: {Label: "Completed automatically", DisplayClass: "badge-success"},
	EarlyReturnStatusCancelled:     {Label: "Cancelled", DisplayClass: "badge-muted"},
}

var extensionDisplay = map[ExtensionStatus]StatusDisplay{
	ExtensionStatusPending:   {Label: "Waiting for owner", DisplayClass: "badge-warning"},
	ExtensionStatusApproved:  {Label: "Extended", DisplayClass: "badge-success"},
	ExtensionStatusRejected:  {Label: "Declined", DisplayClass: "badge-danger"},
	ExtensionStatusCancelled: {Label: "Cancelled", DisplayClass: "badge-muted"},
}

var subOrderDisplay = map[SubOrderStatus]StatusDisplay{
	SubOrderStatusPendingOwnerConfirmation: {Label: "Waiting for owner", DisplayClass: "badge-warning"},
	SubOrderStatusOwnerConfirmed:           {Label: "Confirmed by owner", DisplayClass: "badge-info"},
	SubOrderStatusOwnerRejected:            {Label: "Rejected by owner", DisplayClass: "badge-danger"},
	SubOrderStatusReadyForContract:         {Label: "Ready for contract", DisplayClass: "badge-info"},
	SubOrderStatusContractSigned:           {Label: "Contract signed", DisplayClass: "badge-primary"},
	SubOrderStatusActive:                   {Label: "Renting", DisplayClass: "badge-primary"},
	SubOrderStatusCompleted:                {Label: "Completed", DisplayClass: "badge-success"},
	SubOrderStatusCancelled:                {Label: "Cancelled", DisplayClass: "badge-muted"},
}

func (s EarlyReturnStatus) Display() StatusDisplay { return lookupDisplay(earlyReturnDisplay, s) }

func (s ExtensionStatus) Display() StatusDisplay { return lookupDisplay(extensionDisplay, s) }

func (s SubOrderStatus) Display() StatusDisplay { return lookupDisplay(subOrderDisplay, s) }

func lookupDisplay[K comparable](table map[K]StatusDisplay, key K) StatusDisplay {
	if d, ok := table[key]; ok {
		return d
	}
	return unknownDisplay
}
