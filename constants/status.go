package constants

// DocumentStatus is the canonical status for rows in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusProcessed DocumentStatus = "PROCESSED" // pipeline completed, record persisted
	DocumentStatusReview    DocumentStatus = "REVIEW"    // persisted but flagged for human review
	DocumentStatusFailed    DocumentStatus = "FAILED"    // terminal failure, only a failure record exists
)

// FailureStage identifies which pipeline stage produced a failure record.
type FailureStage string

const (
	FailureStageExtract  FailureStage = "EXTRACT"  // document bytes -> text
	FailureStageDispatch FailureStage = "DISPATCH" // vendor selection
	FailureStageParse    FailureStage = "PARSE"    // line-item segmentation
	FailureStagePersist  FailureStage = "PERSIST"  // writing the record
)
