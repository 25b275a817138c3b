package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	Agent        AgentConfig        `json:"agent"`
	Reasoner     ReasonerConfig     `json:"reasoner"`
	Brain        BrainConfig        `json:"brain"`
	Memory       MemoryConfig       `json:"memory"`
	Gate         GateConfig         `json:"gate"`
	Orchestrator OrchestratorConfig `json:"orchestrator"`
	HTTP         HTTPConfig         `json:"http"`
	Scheduler    SchedulerConfig    `json:"scheduler"`
}

type AgentConfig struct {
	Name      string `json:"name"`
	CLIUserID string `json:"cli_user_id"`
}

type ReasonerConfig struct {
	Model      string `json:"model"`
	TimeoutSec int    `json:"timeout_sec"`
}

type BrainConfig struct {
	InsightHistoryLimit int `json:"insight_history_limit"`
	PatternThreshold    int `json:"pattern_threshold"`
	RelevantKnowledgeK  int `json:"relevant_knowledge_k"`
}

type MemoryConfig struct {
	ContextLimit    int     `json:"context_limit"`
	ChunkSizeWords  int     `json:"chunk_size_words"`
	SearchThreshold float64 `json:"search_threshold"`
}

type GateConfig struct {
	Limit     int `json:"limit"`
	WindowSec int `json:"window_sec"`
}

type WorkerAgentConfig struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Endpoint string `json:"endpoint"`
}

type OrchestratorConfig struct {
	DispatchTimeoutSec int                 `json:"dispatch_timeout_sec"`
	ClassifyTimeoutSec int                 `json:"classify_timeout_sec"`
	QueueWorkers       int                 `json:"queue_workers"`
	QueueBuffer        int                 `json:"queue_buffer"`
	Agents             []WorkerAgentConfig `json:"agents"`
}

type HTTPConfig struct {
	Port int `json:"port"`
}

type SchedulerConfig struct {
	SelfReviewIntervalSec int `json:"self_review_interval_sec"`
}

type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

func DefaultPath() string {
	return filepath.Join("config", "config.json")
}

func NewManager(path string) (*Manager, error) {
	cfg := defaultConfig()
	mgr := &Manager{
		path: path,
		cfg:  cfg,
	}
	if err := mgr.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := mgr.save(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Update(apply func(*Config)) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.cfg)
	applyDefaults(&m.cfg)
	if err := m.saveLocked(); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	m.cfg = fileCfg
	applyDefaults(&m.cfg)
	return nil
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

func defaultConfig() Config {
	return Config{
		Agent: AgentConfig{
			Name:      "Surooh",
			CLIUserID: "local_user",
		},
		Reasoner: ReasonerConfig{
			Model:      "gpt-4o",
			TimeoutSec: 45,
		},
		Brain: BrainConfig{
			InsightHistoryLimit: 200,
			PatternThreshold:    3,
			RelevantKnowledgeK:  5,
		},
		Memory: MemoryConfig{
			ContextLimit:    50,
			ChunkSizeWords:  512,
			SearchThreshold: 0.3,
		},
		Gate: GateConfig{
			Limit:     100,
			WindowSec: 3600,
		},
		Orchestrator: OrchestratorConfig{
			DispatchTimeoutSec: 30,
			ClassifyTimeoutSec: 15,
			QueueWorkers:       4,
			QueueBuffer:        64,
			Agents:             defaultWorkerAgents(),
		},
		HTTP: HTTPConfig{
			Port: 8080,
		},
		Scheduler: SchedulerConfig{
			SelfReviewIntervalSec: 600,
		},
	}
}

func defaultWorkerAgents() []WorkerAgentConfig {
	return []WorkerAgentConfig{
		{Name: "code_master", Category: "code", Endpoint: "http://localhost:8003/execute"},
		{Name: "design_genius", Category: "design", Endpoint: "http://localhost:8004/execute"},
		{Name: "fullstack_pro", Category: "development", Endpoint: "http://localhost:8005/execute"},
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Agent.Name) == "" {
		cfg.Agent.Name = "Surooh"
	}
	if strings.TrimSpace(cfg.Agent.CLIUserID) == "" {
		cfg.Agent.CLIUserID = "local_user"
	}
	if strings.TrimSpace(cfg.Reasoner.Model) == "" {
		cfg.Reasoner.Model = "gpt-4o"
	}
	if cfg.Reasoner.TimeoutSec <= 0 {
		cfg.Reasoner.TimeoutSec = 45
	}
	if cfg.Brain.InsightHistoryLimit <= 0 {
		cfg.Brain.InsightHistoryLimit = 200
	}
	if cfg.Brain.PatternThreshold <= 0 {
		cfg.Brain.PatternThreshold = 3
	}
	if cfg.Brain.RelevantKnowledgeK <= 0 {
		cfg.Brain.RelevantKnowledgeK = 5
	}
	if cfg.Memory.ContextLimit <= 0 {
		cfg.Memory.ContextLimit = 50
	}
	if cfg.Memory.ChunkSizeWords <= 0 {
		cfg.Memory.ChunkSizeWords = 512
	}
	if cfg.Memory.SearchThreshold <= 0 || cfg.Memory.SearchThreshold >= 1 {
		cfg.Memory.SearchThreshold = 0.3
	}
	if cfg.Gate.Limit <= 0 {
		cfg.Gate.Limit = 100
	}
	if cfg.Gate.WindowSec <= 0 {
		cfg.Gate.WindowSec = 3600
	}
	if cfg.Orchestrator.DispatchTimeoutSec <= 0 {
		cfg.Orchestrator.DispatchTimeoutSec = 30
	}
	if cfg.Orchestrator.ClassifyTimeoutSec <= 0 {
		cfg.Orchestrator.ClassifyTimeoutSec = 15
	}
	if cfg.Orchestrator.QueueWorkers <= 0 {
		cfg.Orchestrator.QueueWorkers = 4
	}
	if cfg.Orchestrator.QueueBuffer <= 0 {
		cfg.Orchestrator.QueueBuffer = 64
	}
	if len(cfg.Orchestrator.Agents) == 0 {
		cfg.Orchestrator.Agents = defaultWorkerAgents()
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Scheduler.SelfReviewIntervalSec <= 0 {
		cfg.Scheduler.SelfReviewIntervalSec = 600
	}
}
