/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package memberquery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/memberquery/database"
	"github.com/tomoncle/memberquery/model"
	"github.com/tomoncle/memberquery/repository"
	"github.com/tomoncle/memberquery/types"
	"github.com/tomoncle/memberquery/utils"
	"github.com/uptrace/bun"
)

const (
	localTeamA       = "teamA"
	localTeamB       = "teamB"
	localMemberCount = 100
)

type MemberService interface {
	Search(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error)
	SearchPage(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error)
	SearchPageSimple(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error)

	// Register saves a member, creating the team on first use. A blank
	// teamName registers a member without team.
	Register(ctx context.Context, username string, age int, teamName string) (*model.Member, error)

	Teams(ctx context.Context) ([]*model.Team, error)
	TeamStats(ctx context.Context, minMembers int) ([]model.TeamStat, error)
	BulkAddAge(ctx context.Context, delta int) (int64, error)

	// InitLocalData seeds teamA, teamB and member0..member99 in one
	// transaction; even members join teamA, odd ones teamB. It does nothing
	// when any team exists.
	InitLocalData(ctx context.Context) error
}

type memberServiceImpl struct {
	db      *bun.DB
	members repository.MemberRepository
	teams   Service[model.Team]
	logger  *logrus.Logger
	once    sync.Once
}

// NewMemberService binds to the process-wide database on first use.
func NewMemberService() MemberService {
	return &memberServiceImpl{logger: utils.NewLogger("SERVICE")}
}

func NewMemberServiceWithDB(db *bun.DB) MemberService {
	return &memberServiceImpl{db: db, logger: utils.NewLogger("SERVICE")}
}

func (s *memberServiceImpl) bind() {
	s.once.Do(func() {
		if s.db == nil {
			s.db = database.GetDB()
		}
		s.members = repository.NewMemberRepository(s.db)
		s.teams = NewServiceWithDB[model.Team](s.db)
	})
}

func (s *memberServiceImpl) memberRepo() repository.MemberRepository {
	s.bind()
	return s.members
}

func (s *memberServiceImpl) warnIfUnbounded(op string, cond model.MemberSearchCondition) {
	if cond.IsEmpty() {
		s.logger.WithField("operation", op).Warn("member search without any condition reads the whole table")
	}
}

func (s *memberServiceImpl) Search(ctx context.Context, cond model.MemberSearchCondition) ([]model.MemberTeamDto, error) {
	s.warnIfUnbounded("search", cond)
	return s.memberRepo().Search(ctx, cond)
}

func (s *memberServiceImpl) SearchPage(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
	return s.memberRepo().SearchPage(ctx, cond, pageable)
}

func (s *memberServiceImpl) SearchPageSimple(ctx context.Context, cond model.MemberSearchCondition, pageable *types.PageRequest) (*types.Page[model.MemberTeamDto], error) {
	return s.memberRepo().SearchPageSimple(ctx, cond, pageable)
}

func (s *memberServiceImpl) Register(ctx context.Context, username string, age int, teamName string) (*model.Member, error) {
	s.bind()
	var member *model.Member
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var team *model.Team
		if name := strings.TrimSpace(teamName); name != "" {
			teams := repository.NewTeamRepository(tx)
			found, err := teams.FindByName(ctx, name)
			switch {
			case errors.Is(err, repository.ErrTeamNotFound):
				found = model.NewTeam(name)
				if err := teams.Save(ctx, found); err != nil {
					return err
				}
			case err != nil:
				return err
			}
			team = found
		}
		member = model.NewMember(username, age, team)
		return s.members.WithTx(tx).Save(ctx, member)
	})
	if err != nil {
		return nil, fmt.Errorf("register member %q: %w", username, err)
	}
	s.logger.WithFields(logrus.Fields{"member_id": member.ID, "team": teamName}).Info("member registered")
	return member, nil
}

func (s *memberServiceImpl) Teams(ctx context.Context) ([]*model.Team, error) {
	s.bind()
	return s.teams.All(ctx)
}

func (s *memberServiceImpl) TeamStats(ctx context.Context, minMembers int) ([]model.TeamStat, error) {
	return s.memberRepo().TeamStats(ctx, minMembers)
}

func (s *memberServiceImpl) BulkAddAge(ctx context.Context, delta int) (int64, error) {
	n, err := s.memberRepo().BulkAddAge(ctx, delta)
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"delta": delta, "rows": n}).Info("bulk age update")
	return n, nil
}

func (s *memberServiceImpl) InitLocalData(ctx context.Context) error {
	s.bind()
	skipped := false
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		teams := repository.NewTeamRepository(tx)
		existing, err := teams.Count(ctx)
		if err != nil {
			return err
		}
		if existing > 0 {
			skipped = true
			return nil
		}
		teamA, teamB := model.NewTeam(localTeamA), model.NewTeam(localTeamB)
		if err := teams.Save(ctx, teamA); err != nil {
			return err
		}
		if err := teams.Save(ctx, teamB); err != nil {
			return err
		}
		members := make([]*model.Member, 0, localMemberCount)
		for i := 0; i < localMemberCount; i++ {
			team := teamA
			if i%2 != 0 {
				team = teamB
			}
			members = append(members, model.NewMember(fmt.Sprintf("member%d", i), i, team))
		}
		return s.members.WithTx(tx).Create(ctx, members...)
	})
	if err != nil {
		return fmt.Errorf("init local data: %w", err)
	}
	if skipped {
		s.logger.Info("teams already present, local data not loaded")
		return nil
	}
	s.logger.WithField("members", localMemberCount).Info("local data initialized")
	return nil
}
