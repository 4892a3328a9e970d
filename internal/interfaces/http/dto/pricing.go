package dto

import "encoding/json"

// LineItemWire is one item of a pricing request on the wire
type LineItemWire struct {
	ID             string  `json:"id,omitempty"`
	ItemName       string  `json:"item_name"`
	CommodityClass string  `json:"commodity_class"`
	TotalWeight    float64 `json:"total_weight"`
	HandlingUnit   string  `json:"handling_unit"`
	NoOfPieces     int     `json:"no_of_pieces"`
	ContainerType  string  `json:"container_type"`
	NoOfPallets    int     `json:"no_of_pallets"`
}

// CommentWire is one comment on the wire
type CommentWire struct {
	ID          string `json:"id"`
	CommentText string `json:"comment_text"`
	AuthorID    string `json:"author_id"`
	AuthorRole  string `json:"author_role"`
	CreatedAt   string `json:"created_at"`
}

// PricingRequestWire is the flat snake_case pricing request. It is both the
// response resource and the body of save, submit, update and resubmit; on
// input, only the detail fields are read.
type PricingRequestWire struct {
	ID string `json:"id"`

	ShipmentDate string `json:"shipment_date"`
	AccountInfo  string `json:"account_info"`
	Discount     string `json:"discount"`

	OriginAddress string `json:"origin_address"`
	OriginState   string `json:"origin_state"`
	OriginZip     string `json:"origin_zip"`
	OriginCountry string `json:"origin_country"`
	DestAddress   string `json:"dest_address"`
	DestState     string `json:"dest_state"`
	DestZip       string `json:"dest_zip"`
	DestCountry   string `json:"dest_country"`

	Accessorial          string `json:"accessorial"`
	Pickup               string `json:"pickup"`
	Delivery             string `json:"delivery"`
	DaylightProtect      bool   `json:"daylight_protect"`
	InsuranceDescription string `json:"insurance_description"`
	InsuranceNote        string `json:"insurance_note"`

	Items []LineItemWire `json:"items"`

	SalesStatus         string  `json:"sales_status"`
	AnalystStatus       string  `json:"analyst_status"`
	FinalApprovalStatus string  `json:"final_approval_status"`
	CreatedBy           string  `json:"created_by"`
	AssignedTo          *string `json:"assigned_to"`
	SubmissionDate      *string `json:"submission_date"`
	CreatedAt           string  `json:"created_at"`
	LastUpdated         string  `json:"last_updated"`
	Version             int     `json:"version"`

	Comments []CommentWire `json:"comments"`
}

// UnmarshalJSON accepts the legacy field names older servers emit: pr_id,
// destination_state, assigned and a single status. The current names win
// when both are present.
func (w *PricingRequestWire) UnmarshalJSON(data []byte) error {
	type plain PricingRequestWire
	var aux struct {
		plain
		PRID             string  `json:"pr_id"`
		DestinationState string  `json:"destination_state"`
		Assigned         *string `json:"assigned"`
		Status           string  `json:"status"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*w = PricingRequestWire(aux.plain)
	if w.ID == "" {
		w.ID = aux.PRID
	}
	if w.DestState == "" {
		w.DestState = aux.DestinationState
	}
	if w.AssignedTo == nil {
		w.AssignedTo = aux.Assigned
	}
	if w.SalesStatus == "" {
		w.SalesStatus = aux.Status
	}
	if w.AnalystStatus == "" {
		w.AnalystStatus = aux.Status
	}
	return nil
}

// DecisionRequest is the body of approve-reject
type DecisionRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}
