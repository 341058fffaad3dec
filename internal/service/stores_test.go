package service

import "github.com/learnhub/engine/internal/repository"

var (
	_ KnowledgeVectorStore = (*repository.KnowledgeVectorsRepository)(nil)
	_ MasteryStore         = (*repository.MasteryRepository)(nil)
	_ InteractionStore     = (*repository.InteractionsRepository)(nil)
	_ HierarchyStore       = (*repository.TopicsRepository)(nil)
	_ TopicVectorSource    = (*repository.TopicsRepository)(nil)
	_ TopicVectorStore     = (*repository.TopicsRepository)(nil)
	_ QuizStore            = (*repository.QuizzesRepository)(nil)
)
