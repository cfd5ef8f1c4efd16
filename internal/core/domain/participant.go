package domain

// ParticipantRecord is the application a participant filed on the ledger.
// Records are immutable once fetched; all fields are display-only.
// FundingAmountWei is the requested amount as a base-10 wei string.
type ParticipantRecord struct {
	Identity         Identity `json:"identity"           bson:"address"`
	BusinessName     string   `json:"business_name"      bson:"business_name"`
	OwnerName        string   `json:"owner_name"         bson:"owner_name"`
	Phone            string   `json:"phone"              bson:"phone"`
	FundingAmountWei string   `json:"funding_amount_wei" bson:"funding_amount_wei"`
	Purpose          string   `json:"purpose"            bson:"purpose"`
	DocumentLink     string   `json:"document_link"      bson:"document_link"`
}
