package agent

import (
	"context"
	"fmt"
	"log/slog"

	"cinema-agent/logger"
	"cinema-agent/pubsub"

	"github.com/cloudwego/eino-examples/adk/common/prints"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// RuntimeConfig Runtime 的依赖
type RuntimeConfig struct {
	// Factory 默认为 NewMovieAdvisorAgent
	Factory AgentFactory
	Agent   MovieAdvisorConfig

	// Broker 为空时内部创建
	Broker  *pubsub.Broker[adk.Message]
	Metrics *Metrics
	Logger  *slog.Logger
	// Verbose 打印每个 Agent 事件
	Verbose bool
}

// Result 一次调用的结果
type Result struct {
	RunID    string
	Answer   string
	Metrics  RunMetrics
	Messages []adk.Message
}

// Runtime Agent 运行时
type Runtime struct {
	agent   adk.Agent
	runner  *adk.Runner
	broker  *pubsub.Broker[adk.Message]
	metrics *Metrics
	logger  *slog.Logger
	verbose bool
}

// NewRuntime 创建新的 Agent 运行时
func NewRuntime(ctx context.Context, cfg RuntimeConfig) (*Runtime, error) {
	if err := ValidateTools(ctx, cfg.Agent.Tools); err != nil {
		return nil, fmt.Errorf("工具配置无效: %w", err)
	}

	factory := cfg.Factory
	if factory == nil {
		factory = NewMovieAdvisorAgent
	}
	agentCfg := cfg.Agent
	agt, err := factory(ctx, &agentCfg)
	if err != nil {
		return nil, fmt.Errorf("创建 Agent 失败: %w", err)
	}

	// 非流式 Runner
	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent:           agt,
		EnableStreaming: false,
	})

	broker := cfg.Broker
	if broker == nil {
		broker = pubsub.NewBroker[adk.Message]()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	l := cfg.Logger
	if l == nil {
		l = logger.Named("agent")
	}

	return &Runtime{
		agent:   agt,
		runner:  runner,
		broker:  broker,
		metrics: metrics,
		logger:  l,
		verbose: cfg.Verbose,
	}, nil
}

// Invoke 用问题运行一次 Agent，不做重试
func (r *Runtime) Invoke(ctx context.Context, question string) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	transcript := NewTranscript(DefaultMaxToolResponse)
	log := r.logger.With("run_id", res.RunID)

	// 发布用户消息创建事件
	userMsg := schema.UserMessage(question)
	transcript.Add(userMsg)
	r.broker.Publish(pubsub.CreatedEvent, userMsg)

	log.Debug("开始运行 Agent", "agent", r.agent.Name(ctx))
	iter := r.runner.Query(ctx, question)

	var runErr error
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if r.verbose {
			prints.Event(event)
		}
		if event.Err != nil {
			runErr = event.Err
			break
		}
		if msg := r.handleEvent(log, event); msg != nil {
			transcript.Add(msg)
			if msg.Role == schema.Assistant && len(msg.ToolCalls) == 0 && msg.Content != "" {
				res.Answer = msg.Content
			}
		}
	}

	res.Metrics = r.metrics.Snapshot()
	res.Messages = transcript.List()

	// 发布结束事件
	r.broker.Publish(pubsub.FinishedEvent, schema.AssistantMessage(res.Answer, nil))

	if runErr != nil {
		return res, fmt.Errorf("运行 Agent 失败: %w", runErr)
	}
	// 没有最终回答时仍返回指标，报告可能已经写入
	if res.Answer == "" {
		log.Warn("Agent 结束但没有最终回答", "messages", len(res.Messages))
	}
	log.Debug("Agent 运行结束", "messages", len(res.Messages))
	return res, nil
}

// handleEvent 处理 Agent 事件，返回事件携带的消息
func (r *Runtime) handleEvent(log *slog.Logger, event *adk.AgentEvent) adk.Message {
	if event.Output == nil || event.Output.MessageOutput == nil {
		return nil
	}

	// 获取消息
	msg, err := event.Output.MessageOutput.GetMessage()
	if err != nil {
		log.Warn("获取消息失败", "error", err)
		r.broker.Publish(pubsub.CreatedEvent, &schema.Message{
			Role:    schema.System,
			Content: fmt.Sprintf("错误: %v", err),
		})
		return nil
	}

	// 发布事件
	r.broker.Publish(pubsub.CreatedEvent, msg)

	// 如果有工具调用，发布工具事件
	for _, tc := range msg.ToolCalls {
		log.Debug("工具调用", "tool", tc.Function.Name)
		r.broker.Publish(pubsub.UpdatedEvent, &schema.Message{
			Role:     schema.System,
			Content:  fmt.Sprintf("调用工具: %s", tc.Function.Name),
			ToolName: tc.Function.Name,
		})
	}

	return msg
}

// Broker 获取事件 Broker
func (r *Runtime) Broker() *pubsub.Broker[adk.Message] {
	return r.broker
}

// Metrics 获取指标收集器
func (r *Runtime) Metrics() *Metrics {
	return r.metrics
}

// Close 关闭运行时
func (r *Runtime) Close() {
	r.broker.Shutdown()
}
