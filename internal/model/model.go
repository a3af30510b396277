package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&DogfightInfo{},
	&Episode{},
	&Entity{},
	&EntityState{},
	&FiredEvent{},
	&KillEvent{},
	&DestroyedEvent{},
	&Outcome{},
	&RunnerPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// DogfightInfo describes the instance that owns the database
type DogfightInfo struct {
	gorm.Model
	GroupName        string `json:"groupName" gorm:"size:127"`
	GroupDescription string `json:"groupDescription" gorm:"size:255"`
	GroupWebsite     string `json:"groupURL" gorm:"size:255"`
}

func (*DogfightInfo) TableName() string {
	return "dogfight_infos"
}

// RunnerPerformance is a periodic snapshot of runner throughput
type RunnerPerformance struct {
	ID                  uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                time.Time `json:"time" gorm:"type:timestamptz;index:idx_runnerperf_time"`
	RunnerName          string    `json:"runnerName" gorm:"size:64"`
	EpisodesDone        uint      `json:"episodesDone"`
	TicksPerSecond      float32   `json:"ticksPerSecond"`
	WriteQueueLength    uint32    `json:"writeQueueLength"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*RunnerPerformance) TableName() string {
	return "runner_performances"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Episode is one run from reset to outcome
type Episode struct {
	gorm.Model
	Name       string         `json:"name" gorm:"size:200"`
	StartTime  time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_episode_start"`
	Seed       int64          `json:"seed"` // bit pattern of the uint64 seed
	DeltaTime  float64        `json:"deltaTime"`
	MaxTime    float64        `json:"maxTime"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	RunnerName string         `json:"runnerName" gorm:"size:64"`
	Tag        string         `json:"tag" gorm:"size:127"`
	Origin     geom.Point     `json:"origin"` // WGS84 lon/lat of the game origin
	Callsigns  datatypes.JSON `json:"callsigns"`
	Options    datatypes.JSON `json:"options"`

	Entities        []Entity
	FiredEvents     []FiredEvent
	KillEvents      []KillEvent
	DestroyedEvents []DestroyedEvent
}

func (*Episode) TableName() string {
	return "episodes"
}

// Entity is an aircraft, missile, base or bullseye seen during an episode.
// Uses composite primary key (EpisodeID, ObjectID); ObjectID is assigned
// sequentially in order of first appearance.
type Entity struct {
	EpisodeID uint    `json:"episodeId" gorm:"primaryKey;autoIncrement:false"`
	ObjectID  uint16  `json:"objectId" gorm:"primaryKey;autoIncrement:false"`
	Episode   Episode `gorm:"foreignkey:EpisodeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Name      string  `json:"name" gorm:"size:64;index:idx_entity_name"`
	Kind      string  `json:"kind" gorm:"size:16"`
	Side      string  `json:"side" gorm:"size:16"`
	JoinTick  uint    `json:"joinTick"`
	JoinTime  float64 `json:"joinTime"` // simulated seconds
}

func (*Entity) TableName() string {
	return "entities"
}

// EntityState is an entity snapshot at a recorded frame
type EntityState struct {
	ID             uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	EpisodeID      uint    `json:"episodeId" gorm:"index:idx_entitystate_episode_id"`
	Episode        Episode `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:EpisodeID;"`
	Tick           uint    `json:"tick" gorm:"index:idx_entitystate_tick"`
	Time           float64 `json:"time"`
	EntityObjectID uint16  `json:"entityObjectId" gorm:"index:idx_entitystate_object_id"`
	Entity         Entity  `gorm:"foreignkey:EpisodeID,EntityObjectID;references:EpisodeID,ObjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Position     geom.Point      `json:"position"` // EPSG:3857
	Heading      float32         `json:"heading"`
	Speed        float32         `json:"speed"`
	Fuel         float32         `json:"fuel"`
	MissileCount uint8           `json:"missileCount"`
	Destroyed    bool            `json:"destroyed" gorm:"default:false"`
	Route        geom.LineString `json:"route"` // remaining route, empty when flying straight
}

func (*EntityState) TableName() string {
	return "entity_states"
}

// FiredEvent is a missile launch
type FiredEvent struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	EpisodeID uint    `json:"episodeId" gorm:"index:idx_firedevent_episode_id"`
	Episode   Episode `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:EpisodeID;"`
	Tick      uint    `json:"tick" gorm:"index:idx_firedevent_tick"`
	Time      float64 `json:"time"`

	ShooterObjectID sql.NullInt32 `json:"shooterObjectId" gorm:"default:NULL"`
	MissileObjectID sql.NullInt32 `json:"missileObjectId" gorm:"default:NULL"`
	Missile         string        `json:"missile" gorm:"size:64"`
	Target          string        `json:"target" gorm:"size:64"`
	Side            string        `json:"side" gorm:"size:16"`
	Origin          geom.Point    `json:"origin"`
	Heading         float32       `json:"heading"`
	Aim             geom.Point    `json:"aim"`
}

func (*FiredEvent) TableName() string {
	return "fired_events"
}

// KillEvent credits a destroyed aircraft to the shooter
type KillEvent struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	EpisodeID uint    `json:"episodeId" gorm:"index:idx_killevent_episode_id"`
	Episode   Episode `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:EpisodeID;"`
	Tick      uint    `json:"tick" gorm:"index:idx_killevent_tick"`
	Time      float64 `json:"time"`

	VictimObjectID sql.NullInt32 `json:"victimObjectId" gorm:"index:idx_killevent_victim;default:NULL"`
	KillerObjectID sql.NullInt32 `json:"killerObjectId" gorm:"index:idx_killevent_killer;default:NULL"`
	Missile        string        `json:"missile" gorm:"size:64"`
	Position       geom.Point    `json:"position"`
	Distance       float32       `json:"distance"` // from launch point, meters
}

func (*KillEvent) TableName() string {
	return "kill_events"
}

// DestroyedEvent is any entity leaving play
type DestroyedEvent struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	EpisodeID uint    `json:"episodeId" gorm:"index:idx_destroyedevent_episode_id"`
	Episode   Episode `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:EpisodeID;"`
	Tick      uint    `json:"tick"`
	Time      float64 `json:"time"`

	ObjectID sql.NullInt32 `json:"objectId" gorm:"default:NULL"`
	Name     string        `json:"name" gorm:"size:64"`
	Kind     string        `json:"kind" gorm:"size:16"`
	Side     string        `json:"side" gorm:"size:16"`
	Reason   string        `json:"reason" gorm:"size:32"`
	Position geom.Point    `json:"position"`
}

func (*DestroyedEvent) TableName() string {
	return "destroyed_events"
}

// Outcome is the terminal classification of an episode
type Outcome struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	EpisodeID  uint           `json:"episodeId" gorm:"uniqueIndex:idx_outcome_episode_id"`
	Episode    Episode        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:EpisodeID;"`
	Winner     string         `json:"winner" gorm:"size:8;index:idx_outcome_winner"`
	Elapsed    float64        `json:"elapsed"`
	Ticks      uint           `json:"ticks"`
	Truncated  bool           `json:"truncated"`
	Remaining  datatypes.JSON `json:"remaining"`
	RewardRed  float64        `json:"rewardRed"`
	RewardBlue float64        `json:"rewardBlue"`
	EndTime    time.Time      `json:"endTime" gorm:"type:timestamptz"`
}

func (*Outcome) TableName() string {
	return "outcomes"
}
