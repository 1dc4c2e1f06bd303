package marketplace

// Claim is a buyer-initiated return/dispute request awaiting seller action.
type Claim struct {
	ID          string       `json:"id"`
	OrderNumber string       `json:"orderNumber"`
	Status      string       `json:"status"`
	ClaimType   ClaimType    `json:"claimType"`
	Items       []ClaimBatch `json:"items"`
}

// ClaimType carries the buyer-stated reason for the claim.
type ClaimType struct {
	Name string `json:"name"`
}

// ClaimBatch groups the line items of one claim entry.
type ClaimBatch struct {
	ClaimItems []ClaimItem `json:"claimItems"`
}

// ClaimItem is a single claimed order line.
type ClaimItem struct {
	ID string `json:"id"`
}

// LineItemIDs flattens all claim line item ids across batches.
func (c Claim) LineItemIDs() []string {
	var ids []string
	for _, batch := range c.Items {
		for _, item := range batch.ClaimItems {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Question is a customer product question waiting for an answer. IDs are
// unique within one store.
type Question struct {
	ID          int64  `json:"id"`
	ProductName string `json:"productName"`
	Text        string `json:"text"`
}

type claimsResponse struct {
	Content []Claim `json:"content"`
}

type questionsResponse struct {
	Content []Question `json:"content"`
}

type approveRequest struct {
	ClaimLineItemIDList []string          `json:"claimLineItemIdList"`
	Params              map[string]string `json:"params"`
}

type answerRequest struct {
	Text string `json:"text"`
}
