package simuni

import (
	"context"
	"errors"

	maa "github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/common"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// StageNodes names the pipeline nodes that drive the non-world screens.
type StageNodes struct {
	Technique  string `mapstructure:"technique"`
	Elite      string `mapstructure:"elite"`
	Patrol     string `mapstructure:"patrol"`
	Disposable string `mapstructure:"disposable"`
	Event      string `mapstructure:"event"`
	Reward     string `mapstructure:"reward"`
	NextLevel  string `mapstructure:"next_level"`
	Exit       string `mapstructure:"exit"`
}

var DefaultStageNodes = StageNodes{
	Technique:  "SimUniUseTechnique",
	Elite:      "SimUniFightElite",
	Patrol:     "SimUniPatrol",
	Disposable: "SimUniAttackDisposable",
	Event:      "SimUniEvent",
	Reward:     "SimUniReward",
	NextLevel:  "SimUniNextLevel",
	Exit:       "SimUniExit",
}

// PipelineStage runs resource pipeline nodes for everything outside the
// open world. It is also the route Fighter.
type PipelineStage struct {
	ctx   *maa.Context
	nodes StageNodes
}

func NewPipelineStage(ctx *maa.Context, nodes StageNodes) *PipelineStage {
	return &PipelineStage{ctx: ctx, nodes: nodes}
}

func (s *PipelineStage) run(ctx context.Context, node string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return common.RunNodes(s.ctx, node)
}

func (s *PipelineStage) UseTechnique(ctx context.Context) error {
	return s.run(ctx, s.nodes.Technique)
}

func (s *PipelineStage) FightElite(ctx context.Context) error {
	return s.run(ctx, s.nodes.Elite)
}

func (s *PipelineStage) EnterFight(ctx context.Context, disposable bool) error {
	if disposable {
		return s.run(ctx, s.nodes.Disposable)
	}
	return s.run(ctx, s.nodes.Patrol)
}

func (s *PipelineStage) HandleEvent(ctx context.Context) error {
	return s.run(ctx, s.nodes.Event)
}

// CollectRewards runs the reward node once per chest until it fails.
func (s *PipelineStage) CollectRewards(ctx context.Context, max int) (int, error) {
	got := 0
	for got < max {
		err := s.run(ctx, s.nodes.Reward)
		if err != nil {
			if errors.Is(err, common.ErrNodeFailed) && got > 0 {
				break
			}
			return got, err
		}
		got++
	}
	return got, nil
}

func (s *PipelineStage) NextLevel(ctx context.Context, level LevelType, pos geom.WorldPoint) error {
	log.Info().Str("level", level.String()).Stringer("pos", pos).Msg("[SimUni] Looking for next floor")
	return s.run(ctx, s.nodes.NextLevel)
}

func (s *PipelineStage) Exit(ctx context.Context) error {
	return s.run(ctx, s.nodes.Exit)
}
