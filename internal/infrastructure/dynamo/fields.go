package dynamo

// DynamoDB attribute and index names shared by repos and Bootstrap.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldBggID     = "bgg_id"
	fieldCode      = "code"
	fieldEmail     = "email"
	fieldExpiresAt = "expires_at"

	indexEmail = "email-index"

	// BatchWriteItem accepts at most 25 requests per call.
	maxBatchWrite = 25
)
