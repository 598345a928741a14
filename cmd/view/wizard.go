package view

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/muesli/reflow/wordwrap"
)

const maxWizardQueues = 10

// the steps of the wizard in the order they are shown
const (
	stepRegion = iota
	stepLoading
	stepKeyPair
	stepScheduler
	stepOs
	stepHeadInstance
	stepHeadSubnet
	stepQueueCount
	stepQueueName
	stepQueueInstance
	stepQueueMax
	stepComputeSubnet
	stepDone
)

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
var hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
var selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

// Wizard drives the interactive prompts that assemble a cluster
// configuration
type Wizard struct {
	factory clients.Factory
}

func NewWizard(f clients.Factory) *Wizard {
	return &Wizard{factory: f}
}

// Run executes the wizard, it blocks until the user has answered all
// prompts or cancelled
func (w *Wizard) Run(ctx context.Context, region string) (*config.ClusterConfig, error) {
	p := tea.NewProgram(initialModel(ctx, w.factory, region))

	out, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("unable to start the configuration wizard: %s", err)
	}

	m := out.(model)

	if m.err != nil {
		return nil, m.err
	}

	if m.step != stepDone {
		return nil, fmt.Errorf("the configuration wizard was cancelled")
	}

	return m.clusterConfig(), nil
}

type resourcesMsg struct {
	keyPairs []string
	subnets  []aws.Subnet
}

type errMsg struct {
	err error
}

type queueAnswers struct {
	name         string
	instanceType string
	maxCount     int
}

type answers struct {
	region        string
	keyName       string
	scheduler     string
	os            string
	headInstance  string
	headSubnet    string
	queueCount    int
	queues        []queueAnswers
	computeSubnet string
}

type model struct {
	ctx     context.Context
	factory clients.Factory

	step    int
	input   textinput.Model
	spin    spinner.Model
	choices []string
	cursor  int
	width   int

	keyPairs []string
	subnets  []aws.Subnet

	answers    answers
	queueIndex int

	invalid string
	err     error
}

func initialModel(ctx context.Context, f clients.Factory, region string) model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))

	in := textinput.New()
	in.SetValue(region)
	in.Focus()

	return model{
		ctx:     ctx,
		factory: f,
		step:    stepRegion,
		input:   in,
		spin:    sp,
		width:   80,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case resourcesMsg:
		if len(msg.keyPairs) == 0 {
			m.err = fmt.Errorf("no EC2 key pairs found in region %s, create one before configuring a cluster", m.answers.region)
			return m, tea.Quit
		}

		if len(msg.subnets) == 0 {
			m.err = fmt.Errorf("no subnets found in region %s", m.answers.region)
			return m, tea.Quit
		}

		m.keyPairs = msg.keyPairs
		m.subnets = msg.subnets

		return m.enterChoice(stepKeyPair, m.keyPairs), nil

	case errMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "up", "k":
			if m.isChoice() && m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "j":
			if m.isChoice() && m.cursor < len(m.choices)-1 {
				m.cursor++
			}
			return m, nil

		case "enter":
			return m.advance()
		}
	}

	if !m.isChoice() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

// advance validates the answer for the current step and moves to the
// next prompt
func (m model) advance() (tea.Model, tea.Cmd) {
	m.invalid = ""

	switch m.step {
	case stepRegion:
		region := strings.TrimSpace(m.input.Value())
		if region == "" {
			m.invalid = "a region is required"
			return m, nil
		}

		m.answers.region = region
		m.step = stepLoading

		return m, tea.Batch(m.spin.Tick, fetchResources(m.ctx, m.factory, region))

	case stepKeyPair:
		m.answers.keyName = m.choices[m.cursor]
		return m.enterChoice(stepScheduler, []string{config.SchedulerSlurm, config.SchedulerAwsBatch}), nil

	case stepScheduler:
		m.answers.scheduler = m.choices[m.cursor]

		// batch clusters only support Amazon Linux
		if m.answers.scheduler == config.SchedulerAwsBatch {
			return m.enterChoice(stepOs, []string{"alinux2"}), nil
		}

		return m.enterChoice(stepOs, config.SupportedOses), nil

	case stepOs:
		m.answers.os = m.choices[m.cursor]
		return m.enterInput(stepHeadInstance, "t3.micro"), textinput.Blink

	case stepHeadInstance:
		instance := strings.TrimSpace(m.input.Value())
		if instance == "" {
			m.invalid = "an instance type is required"
			return m, nil
		}

		m.answers.headInstance = instance
		return m.enterChoice(stepHeadSubnet, subnetChoices(m.subnets)), nil

	case stepHeadSubnet:
		m.answers.headSubnet = m.subnets[m.cursor].ID
		return m.enterInput(stepQueueCount, "1"), textinput.Blink

	case stepQueueCount:
		count, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		if err != nil || count < 1 || count > maxWizardQueues {
			m.invalid = fmt.Sprintf("the number of queues must be between 1 and %d", maxWizardQueues)
			return m, nil
		}

		m.answers.queueCount = count
		m.answers.queues = make([]queueAnswers, count)
		m.queueIndex = 0

		return m.enterInput(stepQueueName, fmt.Sprintf("queue%d", m.queueIndex+1)), textinput.Blink

	case stepQueueName:
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			m.invalid = "a queue name is required"
			return m, nil
		}

		m.answers.queues[m.queueIndex].name = name
		return m.enterInput(stepQueueInstance, "c5.xlarge"), textinput.Blink

	case stepQueueInstance:
		instance := strings.TrimSpace(m.input.Value())
		if instance == "" {
			m.invalid = "an instance type is required"
			return m, nil
		}

		m.answers.queues[m.queueIndex].instanceType = instance
		return m.enterInput(stepQueueMax, strconv.Itoa(config.DefaultMaxCount)), textinput.Blink

	case stepQueueMax:
		max, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		if err != nil || max < 1 {
			m.invalid = "the maximum size must be at least 1"
			return m, nil
		}

		m.answers.queues[m.queueIndex].maxCount = max

		if m.queueIndex < m.answers.queueCount-1 {
			m.queueIndex++
			return m.enterInput(stepQueueName, fmt.Sprintf("queue%d", m.queueIndex+1)), textinput.Blink
		}

		return m.enterChoice(stepComputeSubnet, subnetChoices(m.subnets)), nil

	case stepComputeSubnet:
		m.answers.computeSubnet = m.subnets[m.cursor].ID
		m.step = stepDone

		return m, tea.Quit
	}

	return m, nil
}

func (m model) enterChoice(step int, choices []string) model {
	m.step = step
	m.choices = choices
	m.cursor = 0

	return m
}

func (m model) enterInput(step int, value string) model {
	m.step = step
	m.choices = nil
	m.cursor = 0

	in := textinput.New()
	in.SetValue(value)
	in.Focus()
	m.input = in

	return m
}

func (m model) isChoice() bool {
	return len(m.choices) > 0
}

func (m model) View() string {
	if m.err != nil || m.step == stepDone {
		return ""
	}

	if m.step == stepLoading {
		return fmt.Sprintf("\n %s fetching key pairs and subnets in %s\n", m.spin.View(), m.answers.region)
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(promptStyle.Render(m.prompt()))
	b.WriteString("\n")

	if m.isChoice() {
		for i, c := range m.choices {
			if i == m.cursor {
				b.WriteString(selectedStyle.Render(fmt.Sprintf("> %s", c)))
			} else {
				b.WriteString(fmt.Sprintf("  %s", c))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if m.invalid != "" {
		b.WriteString(errorStyle.Render(m.invalid))
		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render(wordwrap.String(m.hint(), m.width)))
	b.WriteString("\n")

	return b.String()
}

func (m model) prompt() string {
	switch m.step {
	case stepRegion:
		return "AWS region"
	case stepKeyPair:
		return "EC2 key pair for the head node"
	case stepScheduler:
		return "Scheduler"
	case stepOs:
		return "Operating system"
	case stepHeadInstance:
		return "Head node instance type"
	case stepHeadSubnet:
		return "Head node subnet"
	case stepQueueName:
		return fmt.Sprintf("Name of queue %d", m.queueIndex+1)
	case stepQueueInstance:
		return fmt.Sprintf("Instance type of queue %d", m.queueIndex+1)
	case stepQueueMax:
		return fmt.Sprintf("Maximum size of queue %d", m.queueIndex+1)
	case stepQueueCount:
		return "Number of queues"
	case stepComputeSubnet:
		return "Subnet for the compute nodes"
	}

	return ""
}

func (m model) hint() string {
	switch m.step {
	case stepRegion:
		return "The region the cluster will be created in, for example eu-west-1."
	case stepScheduler:
		return "slurm runs jobs on EC2 instances managed by the cluster, awsbatch submits them to AWS Batch."
	case stepQueueCount:
		return fmt.Sprintf("A cluster can have up to %d queues.", maxWizardQueues)
	case stepComputeSubnet:
		return "Compute nodes are usually placed in a private subnet."
	}

	return "Use the arrow keys to choose, enter to confirm, esc to cancel."
}

// clusterConfig assembles the configuration document from the answers
func (m model) clusterConfig() *config.ClusterConfig {
	cfg := &config.ClusterConfig{
		Region: m.answers.region,
		Image:  &config.Image{Os: m.answers.os},
		HeadNode: &config.HeadNode{
			InstanceType: m.answers.headInstance,
			Networking:   &config.HeadNodeNetworking{SubnetId: m.answers.headSubnet},
			Ssh:          &config.Ssh{KeyName: m.answers.keyName},
		},
		Scheduling: &config.Scheduling{Scheduler: m.answers.scheduler},
	}

	for _, q := range m.answers.queues {
		networking := &config.QueueNetworking{SubnetIds: []string{m.answers.computeSubnet}}

		if m.answers.scheduler == config.SchedulerAwsBatch {
			max := q.maxCount
			cfg.Scheduling.AwsBatchQueues = append(cfg.Scheduling.AwsBatchQueues, config.AwsBatchQueue{
				Name:       q.name,
				Networking: networking,
				ComputeResources: []config.AwsBatchComputeResource{{
					Name:          q.name + "-cr",
					InstanceTypes: []string{q.instanceType},
					MaxvCpus:      &max,
				}},
			})

			continue
		}

		max := q.maxCount
		cfg.Scheduling.SlurmQueues = append(cfg.Scheduling.SlurmQueues, config.SlurmQueue{
			Name:       q.name,
			Networking: networking,
			ComputeResources: []config.SlurmComputeResource{{
				Name:         q.name + "-cr",
				InstanceType: q.instanceType,
				MaxCount:     &max,
			}},
		})
	}

	return cfg
}

func subnetChoices(subnets []aws.Subnet) []string {
	choices := make([]string, len(subnets))
	for i, s := range subnets {
		choices[i] = fmt.Sprintf("%s (%s, %s)", s.ID, s.VpcID, s.AvailabilityZone)
	}

	return choices
}

// fetchResources loads the key pairs and subnets of the chosen region in
// the background
func fetchResources(ctx context.Context, f clients.Factory, region string) tea.Cmd {
	return func() tea.Msg {
		c, err := f(ctx, region)
		if err != nil {
			return errMsg{err}
		}

		keyPairs, err := c.EC2.ListKeyPairs(ctx)
		if err != nil {
			return errMsg{err}
		}

		subnets, err := c.EC2.DescribeSubnets(ctx, nil)
		if err != nil {
			return errMsg{err}
		}

		return resourcesMsg{keyPairs: keyPairs, subnets: subnets}
	}
}
