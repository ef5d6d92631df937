package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	unitColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: 1 << 20},
		{Name: "topics", Type: field.TypeString, Size: 1 << 16},
		{Name: "assessment_type", Type: field.TypeString},
		{Name: "passing_threshold", Type: field.TypeInt},
		{Name: "question_weights", Type: field.TypeString, Size: 1 << 16},
		{Name: "question_count", Type: field.TypeInt},
		{Name: "updated_at", Type: field.TypeTime},
	}
	UnitsTable = &schema.Table{
		Name:       "units",
		Columns:    unitColumns,
		PrimaryKey: []*schema.Column{unitColumns[0]},
	}

	questionColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "unit_id", Type: field.TypeString},
		{Name: "batch_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "kind", Type: field.TypeString},
		{Name: "topic", Type: field.TypeString},
		{Name: "prompt", Type: field.TypeString, Size: 1 << 16},
		{Name: "options", Type: field.TypeString, Size: 1 << 16},
		{Name: "explanation", Type: field.TypeString, Size: 1 << 16},
		{Name: "rubric", Type: field.TypeString, Size: 1 << 16},
		{Name: "active", Type: field.TypeBool},
		{Name: "created_at", Type: field.TypeTime},
	}
	QuestionsTable = &schema.Table{
		Name:       "questions",
		Columns:    questionColumns,
		PrimaryKey: []*schema.Column{questionColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_unit_id_active", Columns: []*schema.Column{questionColumns[1], questionColumns[10]}},
		},
	}

	// One row per unit while a question batch is being generated.
	generationColumns = []*schema.Column{
		{Name: "unit_id", Type: field.TypeString},
		{Name: "owner", Type: field.TypeString},
		{Name: "claimed_at", Type: field.TypeTime},
	}
	GenerationsTable = &schema.Table{
		Name:       "question_generations",
		Columns:    generationColumns,
		PrimaryKey: []*schema.Column{generationColumns[0]},
	}

	sessionColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "trainee_id", Type: field.TypeString},
		{Name: "unit_id", Type: field.TypeString},
		{Name: "attempt", Type: field.TypeInt},
		{Name: "phase", Type: field.TypeString},
		{Name: "mode", Type: field.TypeString},
		{Name: "question_ids", Type: field.TypeString, Size: 1 << 16},
		{Name: "topics_covered", Type: field.TypeInt},
		{Name: "topics_total", Type: field.TypeInt},
		{Name: "voice_consent", Type: field.TypeBool},
		{Name: "consent_resolved", Type: field.TypeBool},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "last_activity_at", Type: field.TypeTime},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
	}
	SessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    sessionColumns,
		PrimaryKey: []*schema.Column{sessionColumns[0]},
		Indexes: []*schema.Index{
			{Name: "session_trainee_unit_attempt", Unique: true, Columns: []*schema.Column{sessionColumns[1], sessionColumns[2], sessionColumns[3]}},
			{Name: "session_trainee_unit_phase", Columns: []*schema.Column{sessionColumns[1], sessionColumns[2], sessionColumns[4]}},
		},
	}

	turnColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "session_id", Type: field.TypeString},
		{Name: "seq", Type: field.TypeInt},
		{Name: "question_id", Type: field.TypeString},
		{Name: "prompt", Type: field.TypeString, Size: 1 << 16},
		{Name: "submitted", Type: field.TypeString, Size: 1 << 16},
		{Name: "modality", Type: field.TypeString},
		{Name: "result", Type: field.TypeString, Size: 1 << 16},
		{Name: "created_at", Type: field.TypeTime},
	}
	TurnsTable = &schema.Table{
		Name:       "turns",
		Columns:    turnColumns,
		PrimaryKey: []*schema.Column{turnColumns[0]},
		Indexes: []*schema.Index{
			{Name: "turn_session_question", Unique: true, Columns: []*schema.Column{turnColumns[1], turnColumns[3]}},
			{Name: "turn_session_seq", Unique: true, Columns: []*schema.Column{turnColumns[1], turnColumns[2]}},
		},
	}

	resultColumns = []*schema.Column{
		{Name: "session_id", Type: field.TypeString},
		{Name: "body", Type: field.TypeString, Size: 1 << 20},
		{Name: "created_at", Type: field.TypeTime},
	}
	ResultsTable = &schema.Table{
		Name:       "results",
		Columns:    resultColumns,
		PrimaryKey: []*schema.Column{resultColumns[0]},
	}

	tutorSessionColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "trainee_id", Type: field.TypeString},
		{Name: "unit_id", Type: field.TypeString},
		{Name: "phase", Type: field.TypeString},
		{Name: "readiness", Type: field.TypeInt},
		{Name: "suggested_ready", Type: field.TypeBool},
		{Name: "threshold", Type: field.TypeInt},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "last_activity_at", Type: field.TypeTime},
		{Name: "ended_at", Type: field.TypeTime, Nullable: true},
	}
	TutorSessionsTable = &schema.Table{
		Name:       "tutor_sessions",
		Columns:    tutorSessionColumns,
		PrimaryKey: []*schema.Column{tutorSessionColumns[0]},
		Indexes: []*schema.Index{
			{Name: "tutor_session_trainee_unit_phase", Columns: []*schema.Column{tutorSessionColumns[1], tutorSessionColumns[2], tutorSessionColumns[3]}},
		},
	}

	tutorTurnColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "session_id", Type: field.TypeString},
		{Name: "seq", Type: field.TypeInt},
		{Name: "message", Type: field.TypeString, Size: 1 << 16},
		{Name: "reply", Type: field.TypeString, Size: 1 << 16},
		{Name: "score", Type: field.TypeInt},
		{Name: "topic", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	TutorTurnsTable = &schema.Table{
		Name:       "tutor_turns",
		Columns:    tutorTurnColumns,
		PrimaryKey: []*schema.Column{tutorTurnColumns[0]},
		Indexes: []*schema.Index{
			{Name: "tutor_turn_session_seq", Unique: true, Columns: []*schema.Column{tutorTurnColumns[1], tutorTurnColumns[2]}},
		},
	}

	llmRequestColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: 1 << 16},
		{Name: "request_body", Type: field.TypeString, Size: 1 << 20},
		{Name: "response_body", Type: field.TypeString, Size: 1 << 20},
	}
	LLMRequestsTable = &schema.Table{
		Name:       "llm_requests",
		Columns:    llmRequestColumns,
		PrimaryKey: []*schema.Column{llmRequestColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llm_request_purpose", Columns: []*schema.Column{llmRequestColumns[4]}},
		},
	}

	// Tables lists every table in migration order.
	Tables = []*schema.Table{
		UnitsTable,
		QuestionsTable,
		GenerationsTable,
		SessionsTable,
		TurnsTable,
		ResultsTable,
		TutorSessionsTable,
		TutorTurnsTable,
		LLMRequestsTable,
	}
)
