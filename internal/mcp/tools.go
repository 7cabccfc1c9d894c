package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"talecraft/internal/store"
	"talecraft/internal/truth"
	"talecraft/internal/worldbuild"
)

type CreateProjectInput struct {
	Title       string `json:"title" jsonschema:"project title"`
	Description string `json:"description,omitempty" jsonschema:"short project description"`
	StoryIdea   string `json:"story_idea" jsonschema:"the writer's answer to the root question"`
}

type CreateProjectOutput struct {
	ProjectID string           `json:"project_id"`
	Delta     *worldbuild.Delta `json:"delta"`
}

type ListProjectsInput struct{}

type ProjectInfoOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

type ListProjectsOutput struct {
	Projects []ProjectInfoOutput `json:"projects"`
}

type AnswerQuestionInput struct {
	ProjectID  string `json:"project_id" jsonschema:"project id"`
	QuestionID string `json:"question_id" jsonschema:"id of the question being answered"`
	Answer     string `json:"answer" jsonschema:"the writer's answer text"`
}

type AnswerQuestionOutput struct {
	Delta *worldbuild.Delta `json:"delta"`
}

type NextQuestionInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
}

type QuestionOutput struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer,omitempty"`
	Status     string   `json:"status"`
	EntityHint string   `json:"entity_hint"`
	RelatedIDs []string `json:"related_entity_ids,omitempty"`
}

type NextQuestionOutput struct {
	Question *QuestionOutput `json:"question,omitempty"`
	Done     bool            `json:"done"`
}

type ListQuestionsInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
	Status    string `json:"status,omitempty" jsonschema:"filter: pending, partially_answered, or answered"`
}

type ListQuestionsOutput struct {
	Questions []QuestionOutput `json:"questions"`
}

type QuestionPathInput struct {
	ProjectID  string `json:"project_id" jsonschema:"project id"`
	QuestionID string `json:"question_id" jsonschema:"question id"`
}

type QuestionPathOutput struct {
	Path []QuestionOutput `json:"path"`
}

type GetTreeInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
}

type GetTreeOutput struct {
	Tree truth.Summary `json:"tree"`
}

// getTreeOutputSchema hand-writes the schema for GetTreeOutput because
// truth.Summary is recursive and the SDK's schema inference rejects cycles.
func getTreeOutputSchema() *jsonschema.Schema {
	summary := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":          {Type: "string"},
			"question":    {Type: "string"},
			"status":      {Type: "string"},
			"entity_hint": {Type: "string"},
			"children": {
				Type:  "array",
				Items: &jsonschema.Schema{Ref: "#/$defs/Summary"},
			},
		},
		Required:             []string{"id", "question", "status", "entity_hint"},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
	return &jsonschema.Schema{
		Type: "object",
		Defs: map[string]*jsonschema.Schema{"Summary": summary},
		Properties: map[string]*jsonschema.Schema{
			"tree": {Ref: "#/$defs/Summary"},
		},
		Required:             []string{"tree"},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

type SearchTruthInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
	Query     string `json:"query" jsonschema:"search terms"`
}

type SearchTruthOutput struct {
	Results []truth.SearchResult `json:"results"`
}

type GetEntityInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
	EntityID  string `json:"entity_id" jsonschema:"entity id"`
}

type GetEntityOutput struct {
	EntityType string           `json:"type"`
	Character  *truth.Character `json:"character,omitempty"`
	PlotEvent  *truth.PlotEvent `json:"plot_event,omitempty"`
	Setting    *truth.Setting   `json:"setting,omitempty"`
}

type DeleteEntityInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
	EntityID  string `json:"entity_id" jsonschema:"entity id"`
}

type DeleteEntityOutput struct {
	Deleted string `json:"deleted"`
}

type ClearAnswerInput struct {
	ProjectID  string `json:"project_id" jsonschema:"project id"`
	QuestionID string `json:"question_id" jsonschema:"question id"`
}

type ClearAnswerOutput struct {
	Cleared string `json:"cleared"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "create_project",
		Description: "Create a project and bootstrap its question tree from a story idea",
	}, s.handleCreateProject)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_projects",
		Description: "List saved projects",
	}, s.handleListProjects)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "answer_question",
		Description: "Record an answer and run the reconciliation cycle",
	}, s.handleAnswerQuestion)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "next_question",
		Description: "Fetch the next pending question",
	}, s.handleNextQuestion)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_questions",
		Description: "List questions, optionally filtered by status",
	}, s.handleListQuestions)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "question_path",
		Description: "Breadcrumb from the root to a question",
	}, s.handleQuestionPath)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:         "get_tree",
		Description:  "Return the nested question tree",
		OutputSchema: getTreeOutputSchema(),
	}, s.handleGetTree)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_truth",
		Description: "Search entities by name and descriptive fields",
	}, s.handleSearchTruth)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity",
		Description: "Retrieve one entity record",
	}, s.handleGetEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "delete_entity",
		Description: "Delete an entity and clean up every reference to it",
	}, s.handleDeleteEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "clear_answer",
		Description: "Reset a question to pending and retract links derived from its answer",
	}, s.handleClearAnswer)
}

func (s *Server) loadProject(ctx context.Context, id string) (*truth.Project, error) {
	if id == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	return store.LoadProject(ctx, s.db, id)
}

func (s *Server) saveProject(ctx context.Context, p *truth.Project) error {
	return store.SaveProject(ctx, s.db, p)
}

func (s *Server) handleCreateProject(ctx context.Context, req *sdk.CallToolRequest, input CreateProjectInput) (*sdk.CallToolResult, CreateProjectOutput, error) {
	if input.StoryIdea == "" {
		return nil, CreateProjectOutput{}, fmt.Errorf("story_idea is required")
	}
	p, err := truth.NewProject(input.Title, input.Description)
	if err != nil {
		return nil, CreateProjectOutput{}, err
	}
	delta, err := s.orch.Initialize(ctx, p.Truth, input.StoryIdea)
	if err != nil {
		return nil, CreateProjectOutput{}, err
	}
	if err := s.saveProject(ctx, p); err != nil {
		return nil, CreateProjectOutput{}, err
	}
	return nil, CreateProjectOutput{ProjectID: p.ID, Delta: delta}, nil
}

func (s *Server) handleListProjects(ctx context.Context, req *sdk.CallToolRequest, input ListProjectsInput) (*sdk.CallToolResult, ListProjectsOutput, error) {
	infos, err := s.db.ListProjects(ctx)
	if err != nil {
		return nil, ListProjectsOutput{}, err
	}
	out := make([]ProjectInfoOutput, 0, len(infos))
	for _, info := range infos {
		out = append(out, ProjectInfoOutput{
			ID:        info.ID,
			Title:     info.Title,
			UpdatedAt: info.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return nil, ListProjectsOutput{Projects: out}, nil
}

func (s *Server) handleAnswerQuestion(ctx context.Context, req *sdk.CallToolRequest, input AnswerQuestionInput) (*sdk.CallToolResult, AnswerQuestionOutput, error) {
	if input.Answer == "" {
		return nil, AnswerQuestionOutput{}, fmt.Errorf("answer is required")
	}
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, AnswerQuestionOutput{}, err
	}
	delta, err := s.orch.AnswerQuestion(ctx, p.Truth, input.QuestionID, input.Answer)
	if err != nil {
		return nil, AnswerQuestionOutput{}, err
	}
	if err := s.saveProject(ctx, p); err != nil {
		return nil, AnswerQuestionOutput{}, err
	}
	return nil, AnswerQuestionOutput{Delta: delta}, nil
}

func (s *Server) handleNextQuestion(ctx context.Context, req *sdk.CallToolRequest, input NextQuestionInput) (*sdk.CallToolResult, NextQuestionOutput, error) {
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, NextQuestionOutput{}, err
	}
	if p.Truth.Tree == nil {
		return nil, NextQuestionOutput{Done: true}, nil
	}
	next := p.Truth.Tree.NextPending()
	if next == nil {
		return nil, NextQuestionOutput{Done: true}, nil
	}
	q := questionOutput(next)
	return nil, NextQuestionOutput{Question: &q}, nil
}

func (s *Server) handleListQuestions(ctx context.Context, req *sdk.CallToolRequest, input ListQuestionsInput) (*sdk.CallToolResult, ListQuestionsOutput, error) {
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, ListQuestionsOutput{}, err
	}
	if p.Truth.Tree == nil {
		return nil, ListQuestionsOutput{Questions: []QuestionOutput{}}, nil
	}

	var nodes []*truth.QuestionNode
	switch input.Status {
	case "":
		nodes = append(nodes, p.Truth.Tree.Pending()...)
		nodes = append(nodes, p.Truth.Tree.PartiallyAnswered()...)
		nodes = append(nodes, p.Truth.Tree.Answered()...)
	case truth.StatusPending:
		nodes = p.Truth.Tree.Pending()
	case truth.StatusPartiallyAnswered:
		nodes = p.Truth.Tree.PartiallyAnswered()
	case truth.StatusAnswered:
		nodes = p.Truth.Tree.Answered()
	default:
		return nil, ListQuestionsOutput{}, fmt.Errorf("unknown status %q", input.Status)
	}

	out := make([]QuestionOutput, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, questionOutput(n))
	}
	return nil, ListQuestionsOutput{Questions: out}, nil
}

func (s *Server) handleQuestionPath(ctx context.Context, req *sdk.CallToolRequest, input QuestionPathInput) (*sdk.CallToolResult, QuestionPathOutput, error) {
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, QuestionPathOutput{}, err
	}
	if p.Truth.Tree == nil {
		return nil, QuestionPathOutput{}, fmt.Errorf("tree not initialized")
	}
	path, err := p.Truth.Tree.PathToRoot(input.QuestionID)
	if err != nil {
		return nil, QuestionPathOutput{}, err
	}
	out := make([]QuestionOutput, 0, len(path))
	for _, n := range path {
		out = append(out, questionOutput(n))
	}
	return nil, QuestionPathOutput{Path: out}, nil
}

func (s *Server) handleGetTree(ctx context.Context, req *sdk.CallToolRequest, input GetTreeInput) (*sdk.CallToolResult, GetTreeOutput, error) {
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, GetTreeOutput{}, err
	}
	if p.Truth.Tree == nil {
		return nil, GetTreeOutput{}, fmt.Errorf("tree not initialized")
	}
	summary, err := p.Truth.Tree.Summarize()
	if err != nil {
		return nil, GetTreeOutput{}, err
	}
	return nil, GetTreeOutput{Tree: summary}, nil
}

func (s *Server) handleSearchTruth(ctx context.Context, req *sdk.CallToolRequest, input SearchTruthInput) (*sdk.CallToolResult, SearchTruthOutput, error) {
	if input.Query == "" {
		return nil, SearchTruthOutput{}, fmt.Errorf("query is required")
	}
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, SearchTruthOutput{}, err
	}
	results, err := p.Truth.Entities.Search(input.Query)
	if err != nil {
		return nil, SearchTruthOutput{}, err
	}
	if results == nil {
		results = []truth.SearchResult{}
	}
	return nil, SearchTruthOutput{Results: results}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEntityInput) (*sdk.CallToolResult, GetEntityOutput, error) {
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, GetEntityOutput{}, err
	}
	e, err := p.Truth.Entities.Get(input.EntityID)
	if err != nil {
		return nil, GetEntityOutput{}, err
	}
	out := GetEntityOutput{EntityType: e.EntityType()}
	switch v := e.(type) {
	case *truth.Character:
		out.Character = v
	case *truth.PlotEvent:
		out.PlotEvent = v
	case *truth.Setting:
		out.Setting = v
	}
	return nil, out, nil
}

func (s *Server) handleDeleteEntity(ctx context.Context, req *sdk.CallToolRequest, input DeleteEntityInput) (*sdk.CallToolResult, DeleteEntityOutput, error) {
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, DeleteEntityOutput{}, err
	}
	if err := p.Truth.DeleteEntity(input.EntityID); err != nil {
		return nil, DeleteEntityOutput{}, err
	}
	if err := s.saveProject(ctx, p); err != nil {
		return nil, DeleteEntityOutput{}, err
	}
	return nil, DeleteEntityOutput{Deleted: input.EntityID}, nil
}

func (s *Server) handleClearAnswer(ctx context.Context, req *sdk.CallToolRequest, input ClearAnswerInput) (*sdk.CallToolResult, ClearAnswerOutput, error) {
	p, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, ClearAnswerOutput{}, err
	}
	if err := s.orch.ClearAnswer(p.Truth, input.QuestionID); err != nil {
		return nil, ClearAnswerOutput{}, err
	}
	if err := s.saveProject(ctx, p); err != nil {
		return nil, ClearAnswerOutput{}, err
	}
	return nil, ClearAnswerOutput{Cleared: input.QuestionID}, nil
}

func questionOutput(n *truth.QuestionNode) QuestionOutput {
	return QuestionOutput{
		ID:         n.ID,
		Question:   n.Question,
		Answer:     n.Answer,
		Status:     n.Status,
		EntityHint: n.EntityHint,
		RelatedIDs: n.RelatedEntityIDs(),
	}
}
