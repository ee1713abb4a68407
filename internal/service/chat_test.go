package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"mapchat.app/server/common/llm"
	"mapchat.app/server/internal/model"
	"mapchat.app/server/internal/service"
	"mapchat.app/server/internal/store"
)

var _ = Describe("ChatService", func() {
	var (
		ctx    context.Context
		client *mockLLMClient
		links  *mockLinkService
		convs  store.ConversationStore
		svc    service.ChatService
		conv   *model.Conversation
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockLLMClient{}
		links = &mockLinkService{}
		convs = store.NewMemoryConversationStore()
		svc = service.NewChatService(convs, links, client, 2048)

		var err error
		conv, err = svc.NewConversation(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	transcript := func() []model.ChatMessage {
		msgs, err := svc.History(ctx, conv.ID)
		Expect(err).NotTo(HaveOccurred())
		return msgs
	}

	Describe("input validation", func() {
		It("rejects empty text without appending or calling the model", func() {
			_, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: ""})
			Expect(err).To(MatchError(service.ErrEmptyMessage))
			Expect(transcript()).To(BeEmpty())
			Expect(client.calls).To(BeZero())
		})

		It("rejects whitespace-only text without appending or calling the model", func() {
			_, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "   \t\n"})
			Expect(err).To(MatchError(service.ErrEmptyMessage))
			Expect(transcript()).To(BeEmpty())
			Expect(client.calls).To(BeZero())
		})
	})

	Describe("a successful turn", func() {
		It("grows the transcript by exactly two messages", func() {
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: "Try La Taqueria on Mission St."}, nil
			}

			result, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "best tacos near me?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.UserTurn.Role).To(Equal(model.RoleUser))
			Expect(result.AssistantTurn.Text).To(Equal("Try La Taqueria on Mission St."))

			msgs := transcript()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(model.RoleUser))
			Expect(msgs[1].Role).To(Equal(model.RoleAssistant))
		})

		It("passes citations through in provider order", func() {
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return &llm.Response{
					Content: "Two good options nearby.",
					Citations: []llm.Citation{
						{URI: "https://maps.example/b", Title: "B"},
						{URI: "https://maps.example/a", Title: "A"},
					},
				}, nil
			}

			result, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "coffee?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AssistantTurn.Citations).To(Equal([]model.Citation{
				{URI: "https://maps.example/b", Title: "B"},
				{URI: "https://maps.example/a", Title: "A"},
			}))
		})

		It("forwards the location hint and declares the repository tool", func() {
			var captured llm.Request
			client.chatFn = func(_ context.Context, req llm.Request) (*llm.Response, error) {
				captured = req
				return &llm.Response{Content: "ok"}, nil
			}

			_, err := svc.Submit(ctx, service.SubmitParams{
				ConversationID: conv.ID,
				Text:           "lunch?",
				Location:       &model.Coordinate{Latitude: 48.85, Longitude: 2.35},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(captured.Location).NotTo(BeNil())
			Expect(captured.Location.Latitude).To(BeNumerically("~", 48.85))
			Expect(captured.Tools).To(HaveLen(1))
			Expect(captured.Tools[0].Name).To(Equal("list_github_repositories"))
		})

		It("sends prior turns as chat history", func() {
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: "first answer"}, nil
			}
			_, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "first question"})
			Expect(err).NotTo(HaveOccurred())

			var captured llm.Request
			client.chatFn = func(_ context.Context, req llm.Request) (*llm.Response, error) {
				captured = req
				return &llm.Response{Content: "second answer"}, nil
			}
			_, err = svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "second question"})
			Expect(err).NotTo(HaveOccurred())

			// system + first user + first assistant + second user
			Expect(captured.Messages).To(HaveLen(4))
			Expect(captured.Messages[1].Content).To(Equal("first question"))
			Expect(captured.Messages[2].Content).To(Equal("first answer"))
			Expect(captured.Messages[3].Content).To(Equal("second question"))
		})
	})

	Describe("a failed turn", func() {
		It("appends the fixed error text as the assistant turn", func() {
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return nil, errors.New("connection reset")
			}

			result, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "hello?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AssistantTurn.Text).To(Equal(service.ErrorTurnText))

			msgs := transcript()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Text).To(Equal(service.ErrorTurnText))
		})

		It("releases the in-flight guard so the next submission proceeds", func() {
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return nil, errors.New("boom")
			}
			_, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "one"})
			Expect(err).NotTo(HaveOccurred())

			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: "recovered"}, nil
			}
			result, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "two"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AssistantTurn.Text).To(Equal("recovered"))
		})
	})

	Describe("concurrent submissions", func() {
		It("refuses a second submission while one is in flight", func() {
			entered := make(chan struct{})
			releaseCh := make(chan struct{})
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				close(entered)
				<-releaseCh
				return &llm.Response{Content: "slow answer"}, nil
			}

			done := make(chan error, 1)
			go func() {
				_, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "slow"})
				done <- err
			}()

			Eventually(entered).Should(BeClosed())

			_, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "eager"})
			Expect(err).To(MatchError(service.ErrBusy))

			close(releaseCh)
			Eventually(done).Should(Receive(BeNil()))
		})
	})

	Describe("the repository tool call", func() {
		toolCallResponse := func() (*llm.Response, error) {
			return &llm.Response{
				ToolCalls: []llm.ToolCall{{Name: "list_github_repositories", Arguments: "{}"}},
			}, nil
		}

		It("prompts to link when no account is linked", func() {
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return toolCallResponse()
			}

			result, err := svc.Submit(ctx, service.SubmitParams{ConversationID: conv.ID, Text: "my repos?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AssistantTurn.Text).To(Equal(service.LinkPromptText))
		})

		It("renders one bullet per cached repository without a second model call", func() {
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return toolCallResponse()
			}
			links.repositoriesFn = func(_ context.Context, _ string, _ model.Provider, _ string) ([]model.Repository, error) {
				return []model.Repository{
					{Name: "dotfiles", URI: "https://github.com/u/dotfiles"},
					{Name: "mapchat", URI: "https://github.com/u/mapchat", Description: "map assistant"},
					{Name: "blog", URI: "https://github.com/u/blog"},
				}, nil
			}

			result, err := svc.Submit(ctx, service.SubmitParams{
				ConversationID: conv.ID,
				Text:           "list my repos",
				SessionID:      "sess",
				Linked:         &service.LinkedAccount{Provider: model.ProviderGitHub, Token: "tok"},
			})
			Expect(err).NotTo(HaveOccurred())

			lines := strings.Split(result.AssistantTurn.Text, "\n")
			Expect(lines).To(HaveLen(3))
			for _, line := range lines {
				Expect(line).To(HavePrefix("- ["))
			}
			Expect(lines[0]).To(Equal("- [dotfiles](https://github.com/u/dotfiles)"))
			Expect(lines[1]).To(ContainSubstring("[mapchat](https://github.com/u/mapchat)"))
			Expect(client.calls).To(Equal(1))
		})

		It("falls back to the fixed error text when the repository fetch fails", func() {
			client.chatFn = func(_ context.Context, _ llm.Request) (*llm.Response, error) {
				return toolCallResponse()
			}
			links.repositoriesFn = func(_ context.Context, _ string, _ model.Provider, _ string) ([]model.Repository, error) {
				return nil, errors.New("upstream 502")
			}

			result, err := svc.Submit(ctx, service.SubmitParams{
				ConversationID: conv.ID,
				Text:           "list my repos",
				SessionID:      "sess",
				Linked:         &service.LinkedAccount{Provider: model.ProviderGitHub, Token: "tok"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AssistantTurn.Text).To(Equal(service.ErrorTurnText))
		})
	})
})

var _ = Describe("FormatRepositoryList", func() {
	It("renders each repository as a markdown link bullet", func() {
		var repos []model.Repository
		for i := 1; i <= 5; i++ {
			repos = append(repos, model.Repository{
				Name: fmt.Sprintf("repo-%d", i),
				URI:  fmt.Sprintf("https://github.com/u/repo-%d", i),
			})
		}

		out := service.FormatRepositoryList(repos)
		lines := strings.Split(out, "\n")
		Expect(lines).To(HaveLen(5))
		Expect(lines[4]).To(Equal("- [repo-5](https://github.com/u/repo-5)"))
	})

	It("has a friendly line for zero repositories", func() {
		Expect(service.FormatRepositoryList(nil)).NotTo(BeEmpty())
	})
})
