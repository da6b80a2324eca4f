package config

type WorkerKeyStruct struct {
	PersistExamLogsQueue string
	PersistFlagsQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	PersistExamLogsQueue: "persist_exam_logs_queue",
	PersistFlagsQueue:    "persist_flags_queue",
}
